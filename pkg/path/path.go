// Package path derives the undirected paths of a stage map from the neighbor
// sets stored on its stages and caches their rendering telemetry.
//
// Paths are never stored. Each unordered pair of neighboring stages yields
// exactly one [Pair] with From < To, regardless of which side of the
// symmetric relation is scanned first.
package path

import (
	"fmt"

	"github.com/matzehuels/stagemap/pkg/stage"
)

// NoIndex selects full derivation in [DeriveIncremental] and [Set.Refresh].
const NoIndex = -1

// Pair is an unordered pair of stage indices, stored as From < To.
type Pair struct {
	From int `json:"from" bson:"from" yaml:"from"`
	To   int `json:"to" bson:"to" yaml:"to"`
}

// NewPair returns the canonical pair for a and b.
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{From: a, To: b}
}

// Key returns the dedup key "min-max".
func (p Pair) Key() string { return fmt.Sprintf("%d-%d", p.From, p.To) }

// Touches reports whether index is an endpoint of p.
func (p Pair) Touches(index int) bool { return p.From == index || p.To == index }

// DeriveAll returns every path encoded in the neighbor sets of nodes, once
// per unordered pair. Order follows the first sighting when scanning stages
// in index order and neighbors in stored order. Self references and
// references outside nodes are ignored.
func DeriveAll(nodes []stage.Node) []Pair {
	seen := make(map[string]struct{})
	var pairs []Pair
	for i, n := range nodes {
		for _, nb := range n.Neighbors {
			if nb == i || nb < 0 || nb >= len(nodes) {
				continue
			}
			p := NewPair(i, nb)
			if _, ok := seen[p.Key()]; ok {
				continue
			}
			seen[p.Key()] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// DeriveIncremental returns the paths touching changed. It reads only the
// neighbor set of changed, relying on symmetry, so its cost is proportional
// to that stage's degree. A changed index outside nodes (such as [NoIndex])
// falls back to [DeriveAll].
func DeriveIncremental(nodes []stage.Node, changed int) []Pair {
	if changed < 0 || changed >= len(nodes) {
		return DeriveAll(nodes)
	}
	var pairs []Pair
	for _, nb := range nodes[changed].Neighbors {
		if nb == changed || nb < 0 || nb >= len(nodes) {
			continue
		}
		pairs = append(pairs, NewPair(changed, nb))
	}
	return pairs
}
