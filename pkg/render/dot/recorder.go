package dot

import (
	"slices"
	"sync"

	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/path"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// Recorder is an editor.Renderer that keeps the latest map state for export.
// Partial snapshots are merged into the recorded paths. Drawing order is
// tracked by stage ID so it survives removals that shift indices.
type Recorder struct {
	mu      sync.Mutex
	nodes   []stage.Node
	paths   map[path.Pair]path.Path
	order   []string // back to front
	editing int
	renders int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{paths: map[path.Pair]path.Path{}, editing: path.NoIndex}
}

// Render implements editor.Renderer.
func (r *Recorder) Render(s editor.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.renders++
	r.nodes = s.Nodes
	r.editing = s.Editing
	if s.Partial {
		for pair := range r.paths {
			if pair.Touches(s.Changed) {
				delete(r.paths, pair)
			}
		}
	} else {
		clear(r.paths)
	}
	for _, p := range s.Paths {
		r.paths[p.Pair] = p
	}
	r.syncOrder()
}

// Raise implements editor.Renderer.
func (r *Recorder) Raise(index int, front bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.nodes) {
		return
	}
	id := r.nodes[index].ID
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	if front {
		r.order = append(r.order, id)
	} else {
		r.order = slices.Insert(r.order, 0, id)
	}
}

// ReleaseFocus implements editor.Renderer. There is no focus to release.
func (r *Recorder) ReleaseFocus() {}

// syncOrder drops removed stages from the drawing order and puts new ones
// in front.
func (r *Recorder) syncOrder() {
	present := make(map[string]bool, len(r.nodes))
	for _, n := range r.nodes {
		present[n.ID] = true
	}
	known := make(map[string]bool, len(r.order))
	kept := r.order[:0]
	for _, id := range r.order {
		if present[id] {
			kept = append(kept, id)
			known[id] = true
		}
	}
	r.order = kept
	for _, n := range r.nodes {
		if !known[n.ID] {
			r.order = append(r.order, n.ID)
		}
	}
}

// Nodes returns the recorded stages.
func (r *Recorder) Nodes() []stage.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.nodes)
}

// Paths returns the recorded paths ordered by pair.
func (r *Recorder) Paths() []path.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedPaths()
}

func (r *Recorder) sortedPaths() []path.Path {
	out := make([]path.Path, 0, len(r.paths))
	for _, p := range r.paths {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b path.Path) int {
		if a.From != b.From {
			return a.From - b.From
		}
		return a.To - b.To
	})
	return out
}

// Order returns stage indices back to front.
func (r *Recorder) Order() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOrder()
}

func (r *Recorder) indexOrder() []int {
	pos := make(map[string]int, len(r.nodes))
	for i, n := range r.nodes {
		pos[n.ID] = i
	}
	out := make([]int, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, pos[id])
	}
	return out
}

// Renders returns how many snapshots were rendered.
func (r *Recorder) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// DOT returns the recorded state as DOT. Order and Highlight in opts are
// replaced by the recorded drawing order and the stage being edited.
func (r *Recorder) DOT(opts Options) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts.Order = r.indexOrder()
	opts.Highlight = ""
	if r.editing >= 0 && r.editing < len(r.nodes) {
		opts.Highlight = r.nodes[r.editing].ID
	}
	return ToDOT(r.nodes, r.sortedPaths(), opts)
}

var _ editor.Renderer = (*Recorder)(nil)
