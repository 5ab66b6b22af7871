// Package graph holds the editable state graph of an exploration.
//
// A Store owns a private copy of an exploration and exposes the edit
// operations of the editor (rename, content, param changes, widget, add and
// delete state, settings). Every mutation is handed to a Recorder before it
// is applied, so the change list always mirrors the graph. Rejected edits
// leave the graph untouched and are reported through a ports.Notifier.
package graph
