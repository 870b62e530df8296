package path

import (
	"slices"

	"github.com/matzehuels/stagemap/pkg/geometry"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// Path is a derived path with its cached telemetry.
type Path struct {
	Pair
	Telemetry *geometry.Telemetry `json:"telemetry,omitempty" bson:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// Set caches the paths of a stage map together with their telemetry.
//
// Telemetry is recomputed only for paths whose endpoints changed; every other
// path keeps the same *geometry.Telemetry value between refreshes.
type Set struct {
	paths  []Path
	index  map[Pair]int // pair -> position in paths
	degree map[int]int  // stage index -> cached paths touching it
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[Pair]int), degree: make(map[int]int)}
}

// Len returns the number of cached paths.
func (s *Set) Len() int { return len(s.paths) }

// Paths returns the cached paths ordered by (From, To), which is the order
// DeriveAll yields for a symmetric map. The telemetry pointers are shared
// with the set and must be treated as read-only.
func (s *Set) Paths() []Path {
	out := make([]Path, len(s.paths))
	copy(out, s.paths)
	return out
}

// Get returns the cached path for p.
func (s *Set) Get(p Pair) (Path, bool) {
	i, ok := s.index[p]
	if !ok {
		return Path{}, false
	}
	return s.paths[i], true
}

// Rebuild discards the cache and recomputes every path from nodes.
// Structural changes shift indices, so cached entries cannot be reused.
func (s *Set) Rebuild(nodes []stage.Node, aspect float64) []Path {
	pairs := DeriveAll(nodes)
	s.paths = make([]Path, len(pairs))
	s.index = make(map[Pair]int, len(pairs))
	s.degree = make(map[int]int)
	for i, p := range pairs {
		s.paths[i] = compute(nodes, p, aspect)
		s.index[p] = i
		s.degree[p.From]++
		s.degree[p.To]++
	}
	s.sort()
	return s.Paths()
}

// Refresh recomputes the paths touching changed and returns them. Cached
// paths touching changed that no longer exist are dropped; all other paths
// are left untouched. A changed index outside nodes rebuilds everything.
func (s *Set) Refresh(nodes []stage.Node, changed int, aspect float64) []Path {
	if changed < 0 || changed >= len(nodes) {
		return s.Rebuild(nodes, aspect)
	}
	if s.index == nil {
		s.index = make(map[Pair]int)
		s.degree = make(map[int]int)
	}

	current := DeriveIncremental(nodes, changed)
	keep := make(map[Pair]struct{}, len(current))
	cached := 0
	for _, p := range current {
		keep[p] = struct{}{}
		if _, ok := s.index[p]; ok {
			cached++
		}
	}

	// Every current pair cached and no extra cached pair: nothing to drop.
	// This keeps a plain move proportional to the stage's degree.
	if s.degree[changed] != cached {
		s.drop(changed, keep)
	}

	updated := make([]Path, 0, len(current))
	grown := false
	for _, p := range current {
		fresh := compute(nodes, p, aspect)
		if i, ok := s.index[p]; ok {
			s.paths[i] = fresh
		} else {
			s.index[p] = len(s.paths)
			s.paths = append(s.paths, fresh)
			s.degree[p.From]++
			s.degree[p.To]++
			grown = true
		}
		updated = append(updated, fresh)
	}
	if grown {
		s.sort()
	}
	return updated
}

// sort orders the cached paths by pair and rebuilds the position index.
func (s *Set) sort() {
	slices.SortFunc(s.paths, func(a, b Path) int { return comparePairs(a.Pair, b.Pair) })
	for i, p := range s.paths {
		s.index[p.Pair] = i
	}
}

func comparePairs(a, b Pair) int {
	if a.From != b.From {
		return a.From - b.From
	}
	return a.To - b.To
}

// drop removes cached paths touching changed that are not in keep.
func (s *Set) drop(changed int, keep map[Pair]struct{}) {
	out := s.paths[:0]
	for _, p := range s.paths {
		if _, ok := keep[p.Pair]; p.Touches(changed) && !ok {
			s.degree[p.From]--
			s.degree[p.To]--
			continue
		}
		out = append(out, p)
	}
	s.paths = out
	s.index = make(map[Pair]int, len(out))
	for i, p := range out {
		s.index[p.Pair] = i
	}
}

func compute(nodes []stage.Node, p Pair, aspect float64) Path {
	t := geometry.Compute(nodes[p.From].Telemetry.Rect(), nodes[p.To].Telemetry.Rect(), aspect)
	return Path{Pair: p, Telemetry: &t}
}
