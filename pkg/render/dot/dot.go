package dot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stagemap/pkg/path"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// DefaultWidth is the drawing width in inches.
const DefaultWidth = 16.0

// Options configures DOT output.
type Options struct {
	// Width is the drawing width in inches; the height follows from Aspect.
	Width float64

	// Aspect is the map aspect ratio (width / height). Zero means 1.
	Aspect float64

	// Order lists stage indices back to front. Stages missing from Order
	// are drawn first, in index order.
	Order []int

	// Highlight is the ID of a stage to emphasize, usually the one being
	// edited. Empty means none.
	Highlight string

	// Detailed labels paths with their length.
	Detailed bool
}

func (o Options) size() (w, h float64) {
	w = o.Width
	if w <= 0 {
		w = DefaultWidth
	}
	aspect := o.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return w, w / aspect
}

// ToDOT converts stages and paths to a neato graph with pinned positions.
// Telemetry is in percent of the map; Graphviz measures from the bottom
// left, so the y axis is flipped.
func ToDOT(nodes []stage.Node, paths []path.Path, opts Options) string {
	w, h := opts.size()

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  outputorder=nodesfirst;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fixedsize=true, fontsize=12];\n")
	buf.WriteString("  edge [penwidth=2];\n")
	buf.WriteString("\n")

	for _, i := range drawOrder(len(nodes), opts.Order) {
		n := nodes[i]
		t := n.Telemetry
		cx := (t.X + t.Width/2) / 100 * w
		cy := (100 - (t.Y + t.Height/2)) / 100 * h
		attrs := []string{
			fmt.Sprintf("label=%q", n.Label),
			fmt.Sprintf("pos=\"%s,%s!\"", inch(cx), inch(cy)),
			fmt.Sprintf("width=%s", inch(t.Width/100*w)),
			fmt.Sprintf("height=%s", inch(t.Height/100*h)),
		}
		if opts.Highlight != "" && n.ID == opts.Highlight {
			attrs = append(attrs, "penwidth=3", "color=\"#d9480f\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, p := range paths {
		if p.From < 0 || p.To >= len(nodes) {
			continue
		}
		from, to := nodes[p.From].ID, nodes[p.To].ID
		if opts.Detailed && p.Telemetry != nil {
			fmt.Fprintf(&buf, "  %q -- %q [label=%q];\n", from, to, fmt.Sprintf("%.1f", p.Telemetry.Length))
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q;\n", from, to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// drawOrder returns all indices below n, those in order last.
func drawOrder(n int, order []int) []int {
	placed := make([]bool, n)
	tail := make([]int, 0, len(order))
	for _, i := range order {
		if i >= 0 && i < n && !placed[i] {
			placed[i] = true
			tail = append(tail, i)
		}
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !placed[i] {
			out = append(out, i)
		}
	}
	return append(out, tail...)
}

func inch(v float64) string { return fmt.Sprintf("%.3f", v) }

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders DOT source to PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
