package editor

import (
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/l10n"
	"github.com/matzehuels/stagemap/pkg/observability"
	"github.com/matzehuels/stagemap/pkg/path"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// =============================================================================
// Types
// =============================================================================

// State is the edit session state.
type State int

const (
	// Idle means no stage is being edited.
	Idle State = iota
	// Editing means exactly one stage has an open session.
	Editing
)

// String returns the state name.
func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// Options configures an Editor. All fields are optional.
type Options struct {
	// MapWidth and MapHeight give the aspect ratio of the map canvas.
	// Zero values mean a square map.
	MapWidth  float64
	MapHeight float64

	Content    ContentFactory
	Dictionary Dictionary
	Confirmer  Confirmer
	Renderer   Renderer
	Listener   Listener
	Scheduler  Scheduler
	Logger     *log.Logger
}

// AddParams are the attributes of a new stage. Zero values take defaults:
// a generated ID, type "stage", an unnamed label, the content's default size
// and a centered position.
type AddParams struct {
	ID        string
	Type      string
	Label     string
	Telemetry *stage.Telemetry
	Neighbors stage.Neighbors
}

// NeighborOption is a stage that can be chosen as neighbor while editing.
type NeighborOption struct {
	Value string `json:"value"` // index as string, the form value
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Editor is the single writer of a stage map. See the package documentation.
type Editor struct {
	registry *stage.Registry
	paths    *path.Set

	aspect    float64
	content   ContentFactory
	dict      Dictionary
	confirmer Confirmer
	renderer  Renderer
	listener  Listener
	scheduler Scheduler
	logger    *log.Logger

	state     State
	editing   int
	options   []NeighborOption
	fieldErrs error
}

// New creates an editor over a copy of nodes. The nodes must satisfy the
// stage invariants (see stage.Validate); slice position becomes the index.
func New(nodes []stage.Node, opts Options) (*Editor, error) {
	if err := stage.Validate(nodes); err != nil {
		return nil, err
	}

	e := &Editor{
		aspect:    1,
		content:   opts.Content,
		dict:      opts.Dictionary,
		confirmer: opts.Confirmer,
		renderer:  opts.Renderer,
		listener:  opts.Listener,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
		editing:   path.NoIndex,
	}
	if opts.MapWidth > 0 && opts.MapHeight > 0 {
		e.aspect = opts.MapWidth / opts.MapHeight
	}
	if e.content == nil {
		e.content = StageFactory{}
	}
	if e.dict == nil {
		e.dict = l10n.Default()
	}
	if e.confirmer == nil {
		e.confirmer = AutoConfirm{}
	}
	if e.renderer == nil {
		e.renderer = nopRenderer{}
	}
	if e.scheduler == nil {
		e.scheduler = &Queue{}
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}

	e.registry = stage.NewRegistry(nodes, e.dict.Get(l10n.KeyUnnamedStage))
	e.paths = path.NewSet()
	e.paths.Rebuild(e.registry.View(), e.aspect)
	return e, nil
}

// =============================================================================
// Accessors
// =============================================================================

// State returns the session state and the index of the stage being edited
// (path.NoIndex when idle).
func (e *Editor) State() (State, int) { return e.state, e.editing }

// Count returns the number of stages.
func (e *Editor) Count() int { return e.registry.Count() }

// Node returns a copy of the stage at index.
func (e *Editor) Node(index int) (stage.Node, error) { return e.registry.Get(index) }

// Nodes returns a copy of all stages.
func (e *Editor) Nodes() []stage.Node { return e.registry.Nodes() }

// Paths returns the cached paths with telemetry.
func (e *Editor) Paths() []path.Path { return e.paths.Paths() }

// Aspect returns the map aspect ratio (width / height).
func (e *Editor) Aspect() float64 { return e.aspect }

// NeighborOptions returns the neighbor choices of the open session.
func (e *Editor) NeighborOptions() []NeighborOption {
	out := make([]NeighborOption, len(e.options))
	copy(out, e.options)
	return out
}

// FieldErrors returns the validation error of the last failed commit, or nil.
func (e *Editor) FieldErrors() error { return e.fieldErrs }

// Snapshot returns the full current state for rendering.
func (e *Editor) Snapshot() Snapshot {
	return Snapshot{
		Nodes:   e.registry.Nodes(),
		Paths:   e.paths.Paths(),
		Changed: path.NoIndex,
		Editing: e.editing,
	}
}

// Flush runs deferred work when the editor uses its default Queue.
func (e *Editor) Flush() {
	if q, ok := e.scheduler.(*Queue); ok {
		q.Flush()
	}
}

// =============================================================================
// Stage Operations
// =============================================================================

// AddNode appends a stage. Without explicit telemetry the stage gets the
// content's default size, with the height scaled by the map aspect ratio so
// it renders square, centered on the map. Given neighbors are linked
// symmetrically. The editor stays in its current state.
func (e *Editor) AddNode(p AddParams) (stage.Node, error) {
	var added stage.Node
	err := e.mutate("add", func() error {
		for _, nb := range p.Neighbors {
			if nb < 0 || nb >= e.registry.Count() {
				return errors.InvalidIndex(nb, e.registry.Count())
			}
		}

		contentType := p.Type
		if contentType == "" {
			contentType = stage.TypeStage
		}
		var tel stage.Telemetry
		if p.Telemetry != nil {
			tel = *p.Telemetry
		} else {
			w, h := e.content.DefaultSize(contentType)
			h *= e.aspect
			tel = stage.Telemetry{X: 50 - w/2, Y: 50 - h/2, Width: w, Height: h}
		}

		added = e.registry.Add(stage.Params{
			ID:        p.ID,
			Type:      contentType,
			Label:     p.Label,
			Telemetry: tel,
		})
		if len(p.Neighbors) > 0 {
			if err := e.linkNeighbors(added.Index, stage.NewNeighbors(p.Neighbors...)); err != nil {
				return err
			}
			e.paths.Refresh(e.registry.View(), added.Index, e.aspect)
			added, _ = e.registry.Get(added.Index)
		}
		e.renderer.Render(e.Snapshot())
		e.notify()
		return nil
	})
	return added, err
}

// UpdatePosition moves a stage and recomputes only the paths touching it.
// The renderer receives a partial snapshot with just those paths.
func (e *Editor) UpdatePosition(index int, x, y float64) error {
	return e.mutate("move", func() error {
		if err := e.registry.SetPosition(index, x, y); err != nil {
			return err
		}
		e.refreshPaths(index)
		e.notify()
		return nil
	})
}

// SetLabel renames a stage.
func (e *Editor) SetLabel(index int, label string) error {
	return e.mutate("label", func() error {
		if err := e.registry.SetLabel(index, label); err != nil {
			return err
		}
		e.notify()
		return nil
	})
}

// SetType changes the content type of a stage.
func (e *Editor) SetType(index int, contentType string) error {
	return e.mutate("type", func() error {
		if err := e.registry.SetType(index, contentType); err != nil {
			return err
		}
		e.notify()
		return nil
	})
}

// SetSize resizes a stage. Paths touching it are recomputed unless it is
// the stage being edited, in which case the commit recomputes them.
func (e *Editor) SetSize(index int, width, height float64) error {
	return e.mutate("resize", func() error {
		if err := e.registry.SetSize(index, width, height); err != nil {
			return err
		}
		if !e.inSession(index) {
			e.refreshPaths(index)
		}
		e.notify()
		return nil
	})
}

// SetNeighbors makes neighbors the exact neighbor set of the stage at index
// and mirrors the relation on every other stage in one pass: each stage k
// gains index if k is in neighbors and loses it otherwise. Self references
// are ignored. With one stage or none the call does nothing.
//
// The affected paths are recomputed immediately, except for the stage being
// edited, whose paths are recomputed on commit.
func (e *Editor) SetNeighbors(index int, neighbors []int) error {
	if e.registry.Count() <= 1 {
		return nil
	}
	return e.mutate("neighbors", func() error {
		if _, err := e.registry.Get(index); err != nil {
			return err
		}
		for _, nb := range neighbors {
			if nb < 0 || nb >= e.registry.Count() {
				return errors.InvalidIndex(nb, e.registry.Count())
			}
		}
		if err := e.linkNeighbors(index, stage.NewNeighbors(neighbors...)); err != nil {
			return err
		}
		if !e.inSession(index) {
			e.refreshPaths(index)
		}
		e.notify()
		return nil
	})
}

// RemoveNode deletes a stage, rewrites all neighbor references and rebuilds
// every path, since every index above the removed one shifted. It fails
// with ALREADY_EDITING while a session is open because the session's index
// would go stale.
func (e *Editor) RemoveNode(index int) error {
	return e.mutate("remove", func() error {
		if e.state == Editing {
			return errors.New(errors.ErrCodeAlreadyEditing, "cannot remove stage %d while stage %d is being edited", index, e.editing)
		}
		removed, err := e.registry.Remove(index)
		if err != nil {
			return err
		}
		e.paths.Rebuild(e.registry.View(), e.aspect)
		e.logger.Debug("stage removed", "id", removed.ID, "label", removed.Label, "index", index)
		e.renderer.Render(e.Snapshot())
		e.notify()
		return nil
	})
}

// RequestRemove asks for confirmation and removes the stage once confirmed.
// An open session on the stage is closed first. The stage is looked up by ID
// when the confirmation arrives, so a late answer removes the right stage
// even if indices shifted in between.
func (e *Editor) RequestRemove(index int) error {
	n, err := e.registry.Get(index)
	if err != nil {
		return err
	}
	if e.state == Editing {
		if e.editing != index {
			return errors.New(errors.ErrCodeAlreadyEditing, "stage %d is being edited", e.editing)
		}
		e.endSession(index)
		e.renderer.Render(e.Snapshot())
	}

	id := n.ID
	e.confirmer.Confirm(Prompt{
		Header:  e.dict.Get(l10n.KeyRemoveDialogHeader),
		Body:    e.dict.Get(l10n.KeyRemoveDialogText),
		Cancel:  e.dict.Get(l10n.KeyRemoveDialogCancel),
		Confirm: e.dict.Get(l10n.KeyRemoveDialogConfirm),
	}, func() {
		i := e.indexOf(id)
		if i < 0 {
			e.logger.Warn("confirmed removal of unknown stage", "id", id)
			return
		}
		if err := e.RemoveNode(i); err != nil {
			e.logger.Error("remove stage", "id", id, "err", err)
		}
	})
	return nil
}

// ReorderToFront draws the stage above all others. Index and stage order
// are unchanged; if stage order ever becomes meaningful this must move the
// stage and trigger a full reindex.
func (e *Editor) ReorderToFront(index int) error {
	if _, err := e.registry.Get(index); err != nil {
		return err
	}
	e.renderer.Raise(index, true)
	return nil
}

// ReorderToBack draws the stage below all others. See ReorderToFront.
func (e *Editor) ReorderToBack(index int) error {
	if _, err := e.registry.Get(index); err != nil {
		return err
	}
	e.renderer.Raise(index, false)
	return nil
}

// =============================================================================
// Edit Sessions
// =============================================================================

// BeginEdit opens a session on the stage at index and returns the stages it
// can be linked to: every other stage with its current label. Keyboard focus
// is released once the current call stack unwinds.
func (e *Editor) BeginEdit(index int) ([]NeighborOption, error) {
	if e.state == Editing {
		return nil, errors.New(errors.ErrCodeAlreadyEditing, "stage %d is already being edited", e.editing)
	}
	if _, err := e.registry.Get(index); err != nil {
		return nil, err
	}

	nodes := e.registry.View()
	options := make([]NeighborOption, 0, len(nodes))
	for i, n := range nodes {
		if i == index {
			continue
		}
		options = append(options, NeighborOption{Value: strconv.Itoa(i), Index: i, Label: n.Label})
	}

	e.state = Editing
	e.editing = index
	e.options = options
	e.fieldErrs = nil
	e.logger.Debug("edit session opened", "index", index)

	e.renderer.Render(e.Snapshot())
	e.scheduler.Defer(e.renderer.ReleaseFocus)
	return e.NeighborOptions(), nil
}

// CommitEdit validates the stage being edited and closes the session.
// If v reports the form invalid, CommitEdit returns false, keeps the
// session open and changes nothing; the failure is available from
// FieldErrors. A nil v accepts every form. It fails with NOT_EDITING if no
// session is open on index.
func (e *Editor) CommitEdit(index int, v Validator) (bool, error) {
	if e.state != Editing || e.editing != index {
		return false, errors.New(errors.ErrCodeNotEditing, "stage %d is not being edited", index)
	}
	n, err := e.registry.Get(index)
	if err != nil {
		return false, err
	}
	if v != nil {
		if verr := v.Validate(stage.FormOf(n)); verr != nil {
			e.fieldErrs = verr
			e.logger.Debug("commit rejected", "index", index, "err", verr)
			return false, nil
		}
	}

	err = e.mutate("commit", func() error {
		e.endSession(index)
		e.renderer.Render(e.Snapshot())
		e.notify()
		return nil
	})
	return err == nil, err
}

// CancelEdit closes the session on index without further changes. Field
// edits already applied stay applied.
func (e *Editor) CancelEdit(index int) error {
	if e.state != Editing || e.editing != index {
		return errors.New(errors.ErrCodeNotEditing, "stage %d is not being edited", index)
	}
	e.endSession(index)
	e.renderer.Render(e.Snapshot())
	return nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

// linkNeighbors sets the neighbor set of index to want and mirrors it. All
// new sets are computed from a read-only scan before any is written.
func (e *Editor) linkNeighbors(index int, want stage.Neighbors) error {
	want = want.Without(index)
	nodes := e.registry.View()
	next := make([]stage.Neighbors, len(nodes))
	for k, n := range nodes {
		switch {
		case k == index:
			next[k] = want
		case want.Contains(k):
			next[k] = n.Clone().Neighbors.With(index)
		default:
			next[k] = n.Clone().Neighbors.Without(index)
		}
	}
	for k, set := range next {
		if err := e.registry.SetNeighbors(k, set); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "mirror neighbors of stage %d onto %d", index, k)
		}
	}
	return nil
}

// inSession reports whether index is the stage with an open session.
func (e *Editor) inSession(index int) bool {
	return e.state == Editing && e.editing == index
}

// refreshPaths recomputes the paths touching index and renders them.
func (e *Editor) refreshPaths(index int) {
	updated := e.paths.Refresh(e.registry.View(), index, e.aspect)
	e.renderer.Render(Snapshot{
		Nodes:   e.registry.Nodes(),
		Paths:   updated,
		Partial: true,
		Changed: index,
		Editing: e.editing,
	})
}

// endSession returns to Idle and recomputes the paths of the edited stage,
// whose neighbor edits were held back while the session was open.
func (e *Editor) endSession(index int) {
	e.logger.Debug("edit session closed", "index", index)
	e.paths.Refresh(e.registry.View(), index, e.aspect)
	e.state = Idle
	e.editing = path.NoIndex
	e.options = nil
	e.fieldErrs = nil
}

func (e *Editor) indexOf(id string) int {
	for i, n := range e.registry.View() {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) notify() {
	if e.listener != nil {
		e.listener.OnChanged(e.registry.Nodes())
	}
}

// mutate runs fn and reports it to the editor hooks and the debug log.
func (e *Editor) mutate(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	observability.Editor().OnMutation(op, e.registry.Count(), elapsed, err)
	if err != nil {
		e.logger.Debug("mutation failed", "op", op, "err", err)
	} else {
		e.logger.Debug("mutation", "op", op, "stages", e.registry.Count(), "took", elapsed)
	}
	return err
}
