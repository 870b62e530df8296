package stage

import (
	"github.com/matzehuels/stagemap/pkg/errors"
)

// Validate checks the stage map invariants on nodes, treating slice position
// as the index: every ID is non-empty and unique, neighbor references are in
// range, no stage lists itself, and every relation is symmetric.
//
// It returns an INVALID_DOCUMENT error describing the first violation.
func Validate(nodes []Node) error {
	seen := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "stage %d has no id", i)
		}
		if j, dup := seen[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidDocument, "stages %d and %d share id %q", j, i, n.ID)
		}
		seen[n.ID] = i

		for _, nb := range n.Neighbors {
			if nb < 0 || nb >= len(nodes) {
				return errors.New(errors.ErrCodeInvalidDocument, "stage %d references missing stage %d", i, nb)
			}
			if nb == i {
				return errors.New(errors.ErrCodeInvalidDocument, "stage %d lists itself as neighbor", i)
			}
			if !nodes[nb].HasNeighbor(i) {
				return errors.New(errors.ErrCodeInvalidDocument, "stage %d lists %d but not vice versa", i, nb)
			}
		}
	}
	return nil
}

// Symmetrize returns a copy of nodes where every one-sided neighbor
// reference is mirrored and out-of-range or self references are dropped.
// It repairs documents edited by hand before they are validated.
func Symmetrize(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
		out[i].Neighbors = nil
	}
	for i, n := range nodes {
		for _, nb := range n.Neighbors {
			if nb < 0 || nb >= len(nodes) || nb == i {
				continue
			}
			out[i].Neighbors = out[i].Neighbors.With(nb)
			out[nb].Neighbors = out[nb].Neighbors.With(i)
		}
	}
	return out
}
