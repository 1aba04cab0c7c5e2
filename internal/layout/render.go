package layout

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Supported Graphviz engines; both are force-directed.
const (
	EngineFDP   = "fdp"
	EngineNeato = "neato"
)

// ToDOT converts a layout to Graphviz DOT. When pinned is set every node is
// fixed at its simulated position and the engine only routes the edges.
func ToDOT(l Layout, pinned bool) string {
	var buf bytes.Buffer
	buf.WriteString("digraph dialog {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  splines=curved;\n")
	fmt.Fprintf(&buf, "  K=%s;\n", num(350.0/72))
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=11];\n")
	buf.WriteString("  edge [color=\"#999999\", fontsize=9, arrowsize=0.7];\n")
	buf.WriteString("\n")

	for _, n := range l.Nodes {
		attrs := []string{
			fmt.Sprintf("label=%q", nodeLabel(n)),
			fmt.Sprintf("width=%s", num(n.Width/72)),
		}
		if n.IsStart {
			attrs = append(attrs, "fillcolor=\"#dbeafe\"", "color=\"#3b82f6\"", "penwidth=2")
		}
		if pinned {
			// graphviz y grows upwards
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", num(n.X), num(-n.Y)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Links {
		if e.Link.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.Link.Label)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n PlacedNode) string {
	parts := []string{n.ID}
	for _, line := range n.Lines {
		parts = append(parts, line.Label)
	}
	return strings.Join(parts, "\n")
}

// RenderSVG lays out a DOT graph with the given engine and renders it to SVG.
func RenderSVG(ctx context.Context, dot, engine string) ([]byte, error) {
	var layout graphviz.Layout
	switch engine {
	case EngineFDP, "":
		layout = graphviz.FDP
	case EngineNeato:
		layout = graphviz.NEATO
	default:
		return nil, fmt.Errorf("unsupported layout engine %q", engine)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(layout)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
