package stage

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matzehuels/stagemap/pkg/errors"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestRegistry(nodes ...Node) *Registry {
	r := NewRegistry(nodes, "Unnamed stage")
	r.newID = sequentialIDs()
	return r
}

func TestRegistryAdd(t *testing.T) {
	r := newTestRegistry()

	a := r.Add(Params{Label: "Start"})
	b := r.Add(Params{})

	if a.Index != 0 || b.Index != 1 {
		t.Fatalf("indices = %d, %d, want 0, 1", a.Index, b.Index)
	}
	if a.ID == b.ID || a.ID == "" {
		t.Errorf("ids not unique: %q, %q", a.ID, b.ID)
	}
	if b.Label != "Unnamed stage 1" {
		t.Errorf("label = %q, want %q", b.Label, "Unnamed stage 1")
	}
	if a.Type != TypeStage {
		t.Errorf("type = %q, want %q", a.Type, TypeStage)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestRegistryAddGeneratesUUID(t *testing.T) {
	r := NewRegistry(nil, "")
	n := r.Add(Params{})
	if len(n.ID) != 36 {
		t.Errorf("ID = %q, want uuid", n.ID)
	}
	if n.Label != DefaultUnnamedPrefix+" 1" {
		t.Errorf("label = %q", n.Label)
	}
}

func TestRegistryInvalidIndex(t *testing.T) {
	r := newTestRegistry()
	r.Add(Params{})

	checks := map[string]error{
		"Get":          func() error { _, err := r.Get(1); return err }(),
		"GetNegative":  func() error { _, err := r.Get(-1); return err }(),
		"Remove":       func() error { _, err := r.Remove(3); return err }(),
		"SetLabel":     r.SetLabel(2, "x"),
		"SetPosition":  r.SetPosition(2, 0, 0),
		"SetSize":      r.SetSize(2, 1, 1),
		"SetType":      r.SetType(2, "x"),
		"SetNeighbors": r.SetNeighbors(0, NewNeighbors(4)),
	}
	for name, err := range checks {
		if !errors.Is(err, errors.ErrCodeInvalidIndex) {
			t.Errorf("%s: err = %v, want INVALID_INDEX", name, err)
		}
	}
	if r.Count() != 1 {
		t.Errorf("failed calls changed count to %d", r.Count())
	}
}

func TestRegistryRemoveReindexes(t *testing.T) {
	r := newTestRegistry(
		Node{ID: "A", Label: "A", Neighbors: NewNeighbors(1, 2)},
		Node{ID: "B", Label: "B", Neighbors: NewNeighbors(0)},
		Node{ID: "C", Label: "C", Neighbors: NewNeighbors(0)},
	)

	removed, err := r.Remove(1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.ID != "B" {
		t.Errorf("removed %q, want B", removed.ID)
	}

	got := r.Nodes()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	want := []struct {
		id        string
		index     int
		neighbors Neighbors
	}{
		{"A", 0, Neighbors{1}},
		{"C", 1, Neighbors{0}},
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Index != w.index || !slices.Equal(got[i].Neighbors, w.neighbors) {
			t.Errorf("node %d = {%s %d %v}, want {%s %d %v}",
				i, got[i].ID, got[i].Index, got[i].Neighbors, w.id, w.index, w.neighbors)
		}
	}
}

func TestRegistryRemoveChain(t *testing.T) {
	// 0-1-2-3 chain, remove the head.
	r := newTestRegistry(
		Node{ID: "a", Neighbors: NewNeighbors(1)},
		Node{ID: "b", Neighbors: NewNeighbors(0, 2)},
		Node{ID: "c", Neighbors: NewNeighbors(1, 3)},
		Node{ID: "d", Neighbors: NewNeighbors(2)},
	)
	if _, err := r.Remove(0); err != nil {
		t.Fatal(err)
	}
	want := []Neighbors{{1}, {0, 2}, {1}}
	for i, n := range r.Nodes() {
		if !slices.Equal(n.Neighbors, want[i]) {
			t.Errorf("node %d neighbors = %v, want %v", i, n.Neighbors, want[i])
		}
	}
	if err := Validate(r.Nodes()); err != nil {
		t.Errorf("Validate after remove: %v", err)
	}
}

func TestRegistryAccessorsCopy(t *testing.T) {
	r := newTestRegistry(
		Node{ID: "a", Neighbors: NewNeighbors(1)},
		Node{ID: "b", Neighbors: NewNeighbors(0)},
	)
	nodes := r.Nodes()
	nodes[0].Neighbors[0] = 42
	nodes[0].Label = "changed"

	n, _ := r.Get(0)
	if n.Neighbors[0] != 1 || n.Label == "changed" {
		t.Errorf("mutating a snapshot changed the registry: %+v", n)
	}
}

func TestRegistrySetNeighborsDropsSelf(t *testing.T) {
	r := newTestRegistry(Node{ID: "a"}, Node{ID: "b"}, Node{ID: "c"})
	if err := r.SetNeighbors(1, Neighbors{2, 1, 0, 2}); err != nil {
		t.Fatal(err)
	}
	n, _ := r.Get(1)
	if !slices.Equal(n.Neighbors, Neighbors{0, 2}) {
		t.Errorf("neighbors = %v, want [0 2]", n.Neighbors)
	}
}

func TestUnnamedLabelUnderChurn(t *testing.T) {
	r := newTestRegistry()
	r.Add(Params{})
	r.Add(Params{})
	r.Add(Params{})
	if _, err := r.Remove(1); err != nil {
		t.Fatal(err)
	}
	n := r.Add(Params{})
	if n.Label != "Unnamed stage 3" {
		t.Errorf("label = %q, want %q", n.Label, "Unnamed stage 3")
	}
}

func TestUnnamedLabelPrefixMatch(t *testing.T) {
	nodes := []Node{
		{Label: "Unnamed stage 1"},
		{Label: "Unnamed stages"},   // no space after prefix
		{Label: "My Unnamed stage"}, // prefix not at start
		{Label: "Unnamed stage x"},
	}
	if got := UnnamedLabel(nodes, "Unnamed stage"); got != "Unnamed stage 3" {
		t.Errorf("UnnamedLabel() = %q, want %q", got, "Unnamed stage 3")
	}
}

func TestNeighborsJSON(t *testing.T) {
	data, err := json.Marshal(NewNeighbors(3, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["0","3"]` {
		t.Errorf("Marshal = %s", data)
	}

	var n Neighbors
	if err := json.Unmarshal([]byte(`["2", 1, "1"]`), &n); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(n, Neighbors{1, 2}) {
		t.Errorf("Unmarshal = %v, want [1 2]", n)
	}

	if err := json.Unmarshal([]byte(`["x"]`), &n); err == nil {
		t.Error("expected error for non-numeric neighbor")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []Node
		wantErr bool
	}{
		{"Empty", nil, false},
		{"Symmetric", []Node{{ID: "a", Neighbors: Neighbors{1}}, {ID: "b", Neighbors: Neighbors{0}}}, false},
		{"OneSided", []Node{{ID: "a", Neighbors: Neighbors{1}}, {ID: "b"}}, true},
		{"SelfLoop", []Node{{ID: "a", Neighbors: Neighbors{0}}}, true},
		{"OutOfRange", []Node{{ID: "a", Neighbors: Neighbors{5}}}, true},
		{"MissingID", []Node{{}}, true},
		{"DuplicateID", []Node{{ID: "a"}, {ID: "a"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.nodes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidDocument) {
				t.Errorf("code = %v, want INVALID_DOCUMENT", errors.GetCode(err))
			}
		})
	}
}

func TestSymmetrize(t *testing.T) {
	nodes := Symmetrize([]Node{
		{ID: "a", Neighbors: Neighbors{0, 1, 9}},
		{ID: "b"},
		{ID: "c", Neighbors: Neighbors{0}},
	})
	if err := Validate(nodes); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !slices.Equal(nodes[0].Neighbors, Neighbors{1, 2}) {
		t.Errorf("a neighbors = %v, want [1 2]", nodes[0].Neighbors)
	}
}

// TestRemovePreservesInvariants removes random stages from random symmetric
// graphs and checks density, symmetry and absence of self loops after each step.
func TestRemovePreservesInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		n := 2 + rng.IntN(12)
		nodes := make([]Node, n)
		for i := range nodes {
			nodes[i] = Node{ID: fmt.Sprintf("n%d", i)}
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.IntN(3) == 0 {
					nodes[i].Neighbors = nodes[i].Neighbors.With(j)
					nodes[j].Neighbors = nodes[j].Neighbors.With(i)
				}
			}
		}
		r := newTestRegistry(nodes...)

		for r.Count() > 0 {
			before := r.Nodes()
			idx := rng.IntN(r.Count())
			if _, err := r.Remove(idx); err != nil {
				t.Fatal(err)
			}
			after := r.Nodes()

			for i, nd := range after {
				if nd.Index != i {
					t.Fatalf("round %d: index %d at position %d", round, nd.Index, i)
				}
			}
			if err := Validate(after); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			// Relations between survivors are preserved, addressed by ID.
			pos := make(map[string]int, len(after))
			for i, nd := range after {
				pos[nd.ID] = i
			}
			for _, b := range before {
				if b.Index == idx {
					continue
				}
				for _, nb := range b.Neighbors {
					if nb == idx {
						continue
					}
					if !after[pos[b.ID]].HasNeighbor(pos[before[nb].ID]) {
						t.Fatalf("round %d: lost relation %s-%s", round, b.ID, before[nb].ID)
					}
				}
			}
		}
	}
}
