// Package stage provides the ordered node registry behind a stage map.
//
// # Overview
//
// A stage map is an undirected graph of labeled, positioned stages. Stages
// live in an ordered sequence and are referenced by their dense 0-based
// index. Neighbor relations are stored as index sets on each stage, which
// keeps documents compact but means every structural change must rewrite
// every neighbor reference.
//
// [Registry] owns the sequence. All index shifting on removal happens in one
// place (see [Registry.Remove]) so the following invariants hold between
// public calls:
//
//   - Symmetry: j is a neighbor of i exactly when i is a neighbor of j
//   - No self loop: i is never a neighbor of i
//   - Index density: indices are exactly 0..N-1, in sequence order
//   - ID stability: a stage's ID never changes
//
// [Validate] checks all four on an arbitrary node slice, which is how
// documents loaded from storage are vetted before editing.
//
// # Labels
//
// New stages without a label are named "<prefix> <k>", where k is one more
// than the number of current labels starting with "<prefix> ". The count is
// recomputed on every call by [UnnamedLabel], so removing an unnamed stage
// lowers the next number instead of leaving a gap.
//
// # Concurrency
//
// Registry is not safe for concurrent use. Accessors return deep copies, so a
// caller may iterate a snapshot while mutating the registry.
package stage
