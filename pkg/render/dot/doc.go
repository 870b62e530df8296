// Package dot exports stage maps as Graphviz drawings.
//
// [ToDOT] writes an undirected graph for the neato engine with every stage
// pinned at its telemetry position, so the drawing matches the editor's
// layout instead of a computed one. [RenderSVG] and [RenderPNG] run the
// DOT source through the embedded Graphviz of goccy/go-graphviz.
//
// [Recorder] is an editor.Renderer that keeps the latest map state,
// including the drawing order set by ReorderToFront and ReorderToBack, so
// that state can be exported at any time:
//
//	rec := dot.NewRecorder()
//	ed, _ := editor.New(nodes, editor.Options{Renderer: rec})
//	...
//	svg, err := dot.RenderSVG(ctx, rec.DOT(dot.Options{}))
package dot
