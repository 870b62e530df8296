package stage

import (
	"github.com/google/uuid"

	"github.com/matzehuels/stagemap/pkg/errors"
)

// Registry owns the ordered sequence of stages.
//
// The zero value is an empty, usable registry.
type Registry struct {
	nodes  []Node
	prefix string
	newID  func() string
}

// NewRegistry creates a registry holding copies of nodes, reindexed by
// position. unnamedPrefix is used for stages added without a label.
func NewRegistry(nodes []Node, unnamedPrefix string) *Registry {
	r := &Registry{prefix: unnamedPrefix}
	r.nodes = make([]Node, len(nodes))
	for i, n := range nodes {
		r.nodes[i] = n.Clone()
	}
	r.Reindex()
	return r
}

// Count returns the number of stages.
func (r *Registry) Count() int { return len(r.nodes) }

// Get returns a copy of the stage at index.
func (r *Registry) Get(index int) (Node, error) {
	if err := r.check(index); err != nil {
		return Node{}, err
	}
	return r.nodes[index].Clone(), nil
}

// Nodes returns a deep copy of all stages in index order.
func (r *Registry) Nodes() []Node {
	out := make([]Node, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = n.Clone()
	}
	return out
}

// View returns the registry's own stage slice without copying. Callers must
// not modify it, and it is invalid after the next mutation. It exists for
// hot paths whose cost must not grow with the number of stages.
func (r *Registry) View() []Node { return r.nodes }

// Add appends a stage and returns it. The index is the count before the
// append; a missing ID is generated and a missing label is derived from the
// unnamed prefix. Neighbor references are stored as given; keeping them
// symmetric is the caller's job.
func (r *Registry) Add(p Params) Node {
	n := Node{
		ID:        p.ID,
		Index:     len(r.nodes),
		Type:      p.Type,
		Label:     p.Label,
		Telemetry: p.Telemetry,
		Neighbors: NewNeighbors(p.Neighbors...).Without(len(r.nodes)),
	}
	if n.ID == "" {
		n.ID = r.generateID()
	}
	if n.Type == "" {
		n.Type = TypeStage
	}
	if n.Label == "" {
		n.Label = UnnamedLabel(r.nodes, r.unnamedPrefix())
	}
	r.nodes = append(r.nodes, n)
	return n.Clone()
}

// SetLabel changes the label of the stage at index.
func (r *Registry) SetLabel(index int, label string) error {
	if err := r.check(index); err != nil {
		return err
	}
	r.nodes[index].Label = label
	return nil
}

// SetType changes the content type of the stage at index.
func (r *Registry) SetType(index int, contentType string) error {
	if err := r.check(index); err != nil {
		return err
	}
	r.nodes[index].Type = contentType
	return nil
}

// SetPosition moves the stage at index.
func (r *Registry) SetPosition(index int, x, y float64) error {
	if err := r.check(index); err != nil {
		return err
	}
	r.nodes[index].Telemetry.X = x
	r.nodes[index].Telemetry.Y = y
	return nil
}

// SetSize resizes the stage at index.
func (r *Registry) SetSize(index int, width, height float64) error {
	if err := r.check(index); err != nil {
		return err
	}
	r.nodes[index].Telemetry.Width = width
	r.nodes[index].Telemetry.Height = height
	return nil
}

// SetNeighbors replaces the neighbor set of the stage at index only.
// Self references are dropped. Other stages are not touched.
func (r *Registry) SetNeighbors(index int, neighbors Neighbors) error {
	if err := r.check(index); err != nil {
		return err
	}
	for _, nb := range neighbors {
		if err := r.check(nb); err != nil {
			return err
		}
	}
	r.nodes[index].Neighbors = NewNeighbors(neighbors...).Without(index)
	return nil
}

// Remove deletes the stage at index and returns it.
//
// Every remaining neighbor set is rewritten before the stage's own index is
// reassigned: references to index are dropped and references above it move
// down by one. Then the sequence is spliced and reindexed.
func (r *Registry) Remove(index int) (Node, error) {
	if err := r.check(index); err != nil {
		return Node{}, err
	}
	removed := r.nodes[index]
	for i := range r.nodes {
		if i == index {
			continue
		}
		r.nodes[i].Neighbors = shiftReferences(r.nodes[i].Neighbors, index)
	}
	r.nodes = append(r.nodes[:index], r.nodes[index+1:]...)
	r.Reindex()
	return removed, nil
}

// Reindex sets every stage's index to its position in the sequence.
func (r *Registry) Reindex() {
	for i := range r.nodes {
		r.nodes[i].Index = i
	}
}

// shiftReferences rewrites a neighbor set for the removal of index:
// the entry equal to index is dropped, larger entries are decremented.
// The result stays sorted because the mapping is monotonic.
func shiftReferences(set Neighbors, index int) Neighbors {
	out := make(Neighbors, 0, len(set))
	for _, nb := range set {
		switch {
		case nb == index:
			continue
		case nb > index:
			out = append(out, nb-1)
		default:
			out = append(out, nb)
		}
	}
	return out
}

func (r *Registry) check(index int) error {
	if index < 0 || index >= len(r.nodes) {
		return errors.InvalidIndex(index, len(r.nodes))
	}
	return nil
}

func (r *Registry) unnamedPrefix() string {
	if r.prefix == "" {
		return DefaultUnnamedPrefix
	}
	return r.prefix
}

func (r *Registry) generateID() string {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.NewString()
}
