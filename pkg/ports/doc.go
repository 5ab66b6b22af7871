/*
Package ports defines the driven ports (interfaces) of lessonkit.

These interfaces decouple the editor and the player from external
implementations, allowing them to work with various storage backends,
notification channels and save endpoints.

# Key Interfaces

  - ExplorationLoader / ExplorationStore: read and persist exploration snapshots.
  - ChangeSaver: the save endpoint a change list is handed to.
  - Notifier: the warning channel components report user-facing problems through.
  - AnswerLog: records learner answers for statistics.
  - DistributedLocker: serialises commits across replicas.
*/
package ports
