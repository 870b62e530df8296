// Package editor orchestrates edits of a stage map.
//
// # Overview
//
// [Editor] is the single writer of a stage map. It owns a [stage.Registry]
// and a [path.Set], exposes the mutating operations (add, move, relabel,
// set neighbors, remove, reorder) and guarantees that the stage invariants
// hold after each call. After every change that affects persisted state it
// hands a copy of the stage list to the [Listener] and the current
// [Snapshot] to the [Renderer].
//
// # Edit Sessions
//
// The editor is either idle or editing exactly one stage:
//
//	Idle --BeginEdit(i)--> Editing(i) --CommitEdit(i, v) ok--> Idle
//	                        Editing(i) --CommitEdit(i, v) invalid--> Editing(i)
//	                        Editing(i) --CancelEdit(i)--> Idle
//	                        Editing(i) --RequestRemove(i)--> Idle, remove on confirm
//
// Field edits made while a session is open ([Editor.SetLabel],
// [Editor.SetNeighbors], ...) apply immediately. A failed validation on
// commit keeps the session open and changes nothing.
//
// # Collaborators
//
// Everything outside the data model is injected through [Options]: a
// [ContentFactory] for default sizes, a [Dictionary] for generated texts, a
// [Confirmer] for removal prompts, a [Renderer] and a [Listener]. Deferred
// work (focus release after opening a session) goes through a [Scheduler];
// the default [Queue] runs it on [Editor.Flush].
//
// # Concurrency
//
// Editor is not safe for concurrent use. Every call runs to completion;
// callers serialize access.
package editor
