package editor

import (
	"github.com/matzehuels/stagemap/pkg/path"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// ContentFactory yields the default size of new content, in percent of the
// map width (height is corrected by the map aspect ratio).
type ContentFactory interface {
	DefaultSize(contentType string) (width, height float64)
}

// StageFactory is a ContentFactory that gives every content type the same size.
type StageFactory struct {
	Width  float64
	Height float64
}

// Default stage size in percent of the map width.
const (
	DefaultStageWidth  = 4.5
	DefaultStageHeight = 4.5
)

// DefaultSize implements ContentFactory.
func (f StageFactory) DefaultSize(string) (float64, float64) {
	w, h := f.Width, f.Height
	if w <= 0 {
		w = DefaultStageWidth
	}
	if h <= 0 {
		h = DefaultStageHeight
	}
	return w, h
}

// Dictionary resolves l10n keys to display texts.
type Dictionary interface {
	Get(key string) string
}

// Prompt is the text of a confirmation dialog.
type Prompt struct {
	Header  string
	Body    string
	Cancel  string
	Confirm string
}

// Confirmer asks the user to confirm a destructive operation. onConfirmed is
// called only if the user agrees, possibly after Confirm has returned.
type Confirmer interface {
	Confirm(p Prompt, onConfirmed func())
}

// AutoConfirm confirms every prompt immediately.
type AutoConfirm struct{}

// Confirm implements Confirmer.
func (AutoConfirm) Confirm(_ Prompt, onConfirmed func()) { onConfirmed() }

// Validator checks the form data of a stage before a session is committed.
// A non-nil error means the form is invalid.
type Validator interface {
	Validate(form stage.Form) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(form stage.Form) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(form stage.Form) error { return f(form) }

// Snapshot is the state handed to a Renderer.
type Snapshot struct {
	Nodes []stage.Node
	Paths []path.Path

	// Partial is set when Paths only holds the paths touching Changed;
	// all other paths are unchanged since the previous snapshot.
	Partial bool
	Changed int

	// Editing is the stage with an open session, or path.NoIndex.
	Editing int
}

// Renderer draws the map. The editor never waits for it.
type Renderer interface {
	// Render draws a full or partial snapshot.
	Render(s Snapshot)

	// Raise moves the stage at index to the front or back of the drawing
	// order. It does not change the stage's index.
	Raise(index int, front bool)

	// ReleaseFocus drops keyboard focus from map controls after an edit
	// session opened.
	ReleaseFocus()
}

// Listener is notified with a copy of the stage list after every change that
// affects persisted state.
type Listener interface {
	OnChanged(nodes []stage.Node)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(nodes []stage.Node)

// OnChanged implements Listener.
func (f ListenerFunc) OnChanged(nodes []stage.Node) { f(nodes) }

// Scheduler runs work after the current call stack unwinds.
type Scheduler interface {
	Defer(fn func())
}

// Queue is a Scheduler that holds deferred work until Flush.
type Queue struct {
	pending []func()
}

// Defer implements Scheduler.
func (q *Queue) Defer(fn func()) { q.pending = append(q.pending, fn) }

// Flush runs pending work in order, including work deferred while flushing,
// and returns how many functions ran.
func (q *Queue) Flush() int {
	n := 0
	for len(q.pending) > 0 {
		fn := q.pending[0]
		q.pending = q.pending[1:]
		fn()
		n++
	}
	return n
}

// Len returns the number of pending functions.
func (q *Queue) Len() int { return len(q.pending) }

type nopRenderer struct{}

func (nopRenderer) Render(Snapshot) {}
func (nopRenderer) Raise(int, bool) {}
func (nopRenderer) ReleaseFocus()   {}
