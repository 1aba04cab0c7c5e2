// Package layout positions the sections of a dialog graph with a
// force-directed simulation and routes the links between them.
package layout

import (
	"math"

	"github.com/Bellian/Godot-Translation-Tool/internal/graph"
)

// Options tunes the simulation. Zero values fall back to DefaultOptions.
type Options struct {
	Width         float64
	Height        float64
	LinkDistance  float64
	Charge        float64
	CollideRadius float64
	AlphaMin      float64
	AlphaDecay    float64
	VelocityDecay float64
	// Ticks bounds a full run; 0 means MaxTicks.
	Ticks int
}

// DefaultOptions returns the tuning used for dialog graphs.
func DefaultOptions() Options {
	return Options{
		Width:         1200,
		Height:        600,
		LinkDistance:  350,
		Charge:        -2000,
		CollideRadius: 150,
		AlphaMin:      0.001,
		AlphaDecay:    1 - math.Pow(0.001, 1.0/300),
		VelocityDecay: 0.4,
		Ticks:         MaxTicks,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.LinkDistance == 0 {
		o.LinkDistance = d.LinkDistance
	}
	if o.Charge == 0 {
		o.Charge = d.Charge
	}
	if o.CollideRadius == 0 {
		o.CollideRadius = d.CollideRadius
	}
	if o.AlphaMin == 0 {
		o.AlphaMin = d.AlphaMin
	}
	if o.AlphaDecay == 0 {
		o.AlphaDecay = d.AlphaDecay
	}
	if o.Ticks <= 0 {
		o.Ticks = d.Ticks
	}
	if o.VelocityDecay == 0 {
		o.VelocityDecay = d.VelocityDecay
	}
	return o
}

type body struct {
	x, y   float64
	vx, vy float64
}

type spring struct {
	source, target int
	strength       float64
	bias           float64
}

// Simulation is a deterministic velocity Verlet simulation with link,
// many-body, centering and collision forces applied in that order.
type Simulation struct {
	opts    Options
	bodies  []body
	springs []spring
	alpha   float64
	rand    lcg
}

const (
	initialRadius = 10.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// NewSimulation places the graph's nodes on a phyllotaxis spiral and prepares
// the link springs. Links are resolved by node id; the last node wins when
// ids repeat.
func NewSimulation(g graph.Graph, opts Options) *Simulation {
	s := &Simulation{
		opts:   opts.withDefaults(),
		bodies: make([]body, len(g.Nodes)),
		alpha:  1,
		rand:   lcg{state: 1},
	}
	for i := range s.bodies {
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		s.bodies[i] = body{x: r * math.Cos(a), y: r * math.Sin(a)}
	}

	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = i
	}
	degree := make([]int, len(g.Nodes))
	for _, l := range g.Links {
		src, ok1 := index[l.Source]
		tgt, ok2 := index[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		degree[src]++
		degree[tgt]++
		s.springs = append(s.springs, spring{source: src, target: tgt})
	}
	for i := range s.springs {
		sp := &s.springs[i]
		ds, dt := float64(degree[sp.source]), float64(degree[sp.target])
		sp.bias = ds / (ds + dt)
		sp.strength = 1 / math.Min(ds, dt)
	}
	return s
}

// Alpha is the current cooling factor.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Done reports whether the simulation has cooled below its minimum alpha.
func (s *Simulation) Done() bool { return s.alpha < s.opts.AlphaMin }

// Tick advances the simulation by one step.
func (s *Simulation) Tick() {
	s.alpha += (0 - s.alpha) * s.opts.AlphaDecay
	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.applyCollide()

	keep := 1 - s.opts.VelocityDecay
	for i := range s.bodies {
		b := &s.bodies[i]
		b.vx *= keep
		b.vy *= keep
		b.x += b.vx
		b.y += b.vy
	}
}

// Run ticks until the simulation is done or max ticks have run.
// It returns the number of ticks performed.
func (s *Simulation) Run(max int) int {
	n := 0
	for ; n < max && !s.Done(); n++ {
		s.Tick()
	}
	return n
}

// Position returns the centre of node i.
func (s *Simulation) Position(i int) (x, y float64) {
	return s.bodies[i].x, s.bodies[i].y
}

func (s *Simulation) applyLinks() {
	for _, sp := range s.springs {
		src, tgt := &s.bodies[sp.source], &s.bodies[sp.target]
		x := tgt.x + tgt.vx - src.x - src.vx
		if x == 0 {
			x = s.rand.jiggle()
		}
		y := tgt.y + tgt.vy - src.y - src.vy
		if y == 0 {
			y = s.rand.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - s.opts.LinkDistance) / l * s.alpha * sp.strength
		x, y = x*l, y*l
		tgt.vx -= x * sp.bias
		tgt.vy -= y * sp.bias
		src.vx += x * (1 - sp.bias)
		src.vy += y * (1 - sp.bias)
	}
}

// applyCharge computes the exact pairwise repulsion; dialog graphs are small.
func (s *Simulation) applyCharge() {
	const distanceMin2 = 1.0
	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := range s.bodies {
			if i == j {
				continue
			}
			bj := &s.bodies[j]
			x, y := bj.x-bi.x, bj.y-bi.y
			l := x*x + y*y
			if x == 0 {
				x = s.rand.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.rand.jiggle()
				l += y * y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := s.opts.Charge * s.alpha / l
			bi.vx += x * w
			bi.vy += y * w
		}
	}
}

func (s *Simulation) applyCenter() {
	if len(s.bodies) == 0 {
		return
	}
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.x
		sy += b.y
	}
	n := float64(len(s.bodies))
	sx = sx/n - s.opts.Width/2
	sy = sy/n - s.opts.Height/2
	for i := range s.bodies {
		s.bodies[i].x -= sx
		s.bodies[i].y -= sy
	}
}

func (s *Simulation) applyCollide() {
	r := s.opts.CollideRadius
	rr := r + r
	for i := range s.bodies {
		bi := &s.bodies[i]
		xi, yi := bi.x+bi.vx, bi.y+bi.vy
		for j := i + 1; j < len(s.bodies); j++ {
			bj := &s.bodies[j]
			x := xi - bj.x - bj.vx
			y := yi - bj.y - bj.vy
			l := x*x + y*y
			if l >= rr*rr {
				continue
			}
			if x == 0 {
				x = s.rand.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.rand.jiggle()
				l += y * y
			}
			d := math.Sqrt(l)
			k := (rr - d) / d
			x, y = x*k, y*k
			// equal radii split the correction evenly
			bi.vx += x * 0.5
			bi.vy += y * 0.5
			bj.vx -= x * 0.5
			bj.vy -= y * 0.5
		}
	}
}

// lcg is a linear congruential generator used to break ties between
// coincident nodes reproducibly.
type lcg struct {
	state uint32
}

func (g *lcg) next() float64 {
	g.state = 1664525*g.state + 1013904223
	return float64(g.state) / 4294967296
}

func (g *lcg) jiggle() float64 {
	return (g.next() - 0.5) * 1e-6
}
