package layout

import (
	"context"
	"sync"
	"time"

	"github.com/Bellian/Godot-Translation-Tool/internal/graph"
)

// Frame is one published step of a running simulation.
type Frame struct {
	Tick   int     `json:"tick"`
	Alpha  float64 `json:"alpha"`
	Done   bool    `json:"done"`
	Layout Layout  `json:"layout"`
}

// Runner ticks a simulation on a timer and publishes a frame per tick.
// The timer is released by Stop, by cancelling the context passed to Start
// or when the simulation cools down.
type Runner struct {
	graph    graph.Graph
	sim      *Simulation
	interval time.Duration

	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	stopped chan struct{}
	ticks   int
}

func NewRunner(g graph.Graph, opts Options, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Runner{graph: g, sim: NewSimulation(g, opts), interval: interval}
}

// Start begins ticking; onFrame is called from the runner's goroutine.
// Returning false from onFrame stops the runner.
func (r *Runner) Start(ctx context.Context, onFrame func(Frame) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(r.interval)
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})
	go r.run(ctx, r.ticker, r.done, onFrame)
}

// Stop halts the ticker. It is safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// Wait blocks until the runner's goroutine has exited.
func (r *Runner) Wait() {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped != nil {
		<-stopped
	}
}

func (r *Runner) run(ctx context.Context, ticker *time.Ticker, done chan struct{}, onFrame func(Frame) bool) {
	defer close(r.stopped)
	defer r.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sim.Tick()
			r.ticks++
			finished := r.sim.Done() || r.ticks >= r.sim.opts.Ticks
			frame := Frame{
				Tick:   r.ticks,
				Alpha:  r.sim.Alpha(),
				Done:   finished,
				Layout: Snapshot(r.graph, r.sim, r.ticks),
			}
			if !onFrame(frame) || finished {
				return
			}
		}
	}
}
