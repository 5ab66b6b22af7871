/*
Package editor ties the state graph and the change list together.

A Session is the client half: edits go through its graph.Store, are logged
by its changelist.Recorder, and Save hands the net change list to a
ports.ChangeSaver once the author confirms a commit message.

A Service is the server half: it implements ports.ChangeSaver by replaying
the change list on the stored snapshot under a per-exploration lock (local,
and distributed when a ports.DistributedLocker is configured), validating
the result and persisting it as the next version.
*/
package editor
