package layout

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Bellian/Godot-Translation-Tool/internal/graph"
)

// Node box geometry, in pixels.
const (
	NodeWidth    = 250.0
	HeaderHeight = 30.0
	LineHeight   = 20.0
	NodePadding  = 10.0
	TargetOffset = 15.0
	LabelLift    = 5.0
)

// MaxTicks bounds a full run; the default decay cools below AlphaMin in 300 ticks.
const MaxTicks = 300

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PlacedNode struct {
	graph.Node
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type RoutedLink struct {
	graph.Link
	From  Point  `json:"from"`
	To    Point  `json:"to"`
	Label Point  `json:"labelAt"`
	Path  string `json:"path"`
}

// Layout is a positioned graph ready to draw.
type Layout struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Ticks  int          `json:"ticks"`
	Nodes  []PlacedNode `json:"nodes"`
	Links  []RoutedLink `json:"links"`
}

// NodeHeight is the height of a node box holding n lines.
func NodeHeight(n int) float64 {
	return HeaderHeight + float64(n)*LineHeight + NodePadding
}

// LineY is the vertical centre of the line with the given order, measured
// from the top of its node.
func LineY(order int) float64 {
	return HeaderHeight + float64(order)*LineHeight + LineHeight/2
}

// Compute runs a simulation to completion and routes every link.
func Compute(g graph.Graph, opts Options) Layout {
	sim := NewSimulation(g, opts)
	ticks := sim.Run(sim.opts.Ticks)
	return Snapshot(g, sim, ticks)
}

// Snapshot places the graph at the simulation's current positions.
func Snapshot(g graph.Graph, sim *Simulation, ticks int) Layout {
	out := Layout{
		Width:  sim.opts.Width,
		Height: sim.opts.Height,
		Ticks:  ticks,
		Nodes:  make([]PlacedNode, 0, len(g.Nodes)),
		Links:  make([]RoutedLink, 0, len(g.Links)),
	}
	byID := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		x, y := sim.Position(i)
		out.Nodes = append(out.Nodes, PlacedNode{
			Node:   n,
			X:      x,
			Y:      y,
			Width:  NodeWidth,
			Height: NodeHeight(len(n.Lines)),
		})
		byID[n.ID] = i
	}
	for _, l := range g.Links {
		si, ok1 := byID[l.Source]
		ti, ok2 := byID[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		out.Links = append(out.Links, Route(l, out.Nodes[si], out.Nodes[ti]))
	}
	return out
}

// Route anchors a link on the right edge of its source line and the left
// edge of the target's header, joined by a quadratic curve.
func Route(l graph.Link, source, target PlacedNode) RoutedLink {
	from := Point{X: source.X + NodeWidth/2, Y: source.Y}
	if l.SourceLineID != 0 {
		for _, line := range source.Lines {
			if line.ID == l.SourceLineID {
				from.Y = source.Y + LineY(line.Order) - source.Height/2
				break
			}
		}
	}
	to := Point{X: target.X - NodeWidth/2, Y: target.Y - target.Height/2 + TargetOffset}

	dx, dy := to.X-from.X, to.Y-from.Y
	dr := math.Sqrt(dx*dx+dy*dy) * 0.8
	midX, midY := from.X+dx/2, from.Y+dy/2

	return RoutedLink{
		Link:  l,
		From:  from,
		To:    to,
		Label: Point{X: (from.X + to.X) / 2, Y: (from.Y+to.Y)/2 - LabelLift},
		Path: fmt.Sprintf("M%s,%s Q%s,%s %s,%s",
			num(from.X), num(from.Y), num(midX+dr/4), num(midY), num(to.X), num(to.Y)),
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
