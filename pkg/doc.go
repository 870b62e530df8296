// Package pkg holds the libraries behind stagemap, an editor for maps of
// stages connected by undirected paths.
//
// # Overview
//
// A stage map is a list of stages placed on a canvas in percent of its size.
// Each stage lists the indices of its neighbors; the relation is always
// symmetric, and the paths between stages are derived from it. The packages
// build on each other:
//
//  1. [geometry] - rectangle centers, boundary anchors and path telemetry
//  2. [stage] - stages, neighbor sets and the index-dense registry
//  3. [path] - path derivation and the telemetry cache
//  4. [editor] - the single writer of a map, with edit sessions
//  5. [document], [store] - persistence in files, Redis, MongoDB or Badger
//  6. [session] - a stored map loaded into an editor
//  7. [render/dot] - Graphviz drawings of a map
//
// Supporting packages: [config] (TOML configuration), [l10n] (display
// texts), [validate] (form validation), [cache] (rendered artifacts),
// [errors] (coded errors), [observability] (hooks) and [buildinfo].
//
// # Data Flow
//
//	document (JSON/YAML) or store
//	         ↓
//	    [session] opens an [editor]
//	         ↓
//	    editor mutations → [path] refresh → renderer snapshot
//	         ↓
//	    store / [render/dot] SVG, PNG or DOT
//
// # Quick Start
//
//	ed, _ := editor.New(nil, editor.Options{MapWidth: 1600, MapHeight: 900})
//	gate, _ := ed.AddNode(editor.AddParams{Label: "Gate"})
//	hall, _ := ed.AddNode(editor.AddParams{Label: "Hall"})
//	ed.SetNeighbors(gate.Index, []int{hall.Index})
//	fmt.Println(len(ed.Paths())) // 1
package pkg
