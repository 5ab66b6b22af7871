/*
Package domain contains the core models of an exploration (lesson).

It defines the state graph an author edits, the change records produced by
editing, and the pages a learner sees while playing. The package is kept free
of I/O and persistence so it can be shared by the editor, the player and every
storage adapter.

# Key Entities

  - Exploration: the graph of states plus its settings (title, init state, params).
  - State: one page of an exploration with content, widget and outgoing rules.
  - RuleSpec: a condition-to-destination edge from one state to another.
  - Change: one recorded edit, replayable by the commit service.
  - Page: the rendered view of a state handed to a learner.
*/
package domain
