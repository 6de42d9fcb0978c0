package services

import (
	"context"
	"sync"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
)

type panelRun struct {
	gen    uint64
	state  models.InsightState
	cancel context.CancelFunc
}

// Generations tracks the insight state machine of each panel. Every Begin
// starts a new generation and cancels the previous in-flight request; a
// result is applied only if its generation is still the current one.
type Generations struct {
	mu   sync.Mutex
	runs map[models.Panel]*panelRun
}

func NewGenerations() *Generations {
	return &Generations{runs: make(map[models.Panel]*panelRun)}
}

// Begin moves panel to Loading and returns the new generation with a context
// that is cancelled when the panel is restarted or the tracker is closed.
func (g *Generations) Begin(parent context.Context, panel models.Panel) (uint64, context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	run, ok := g.runs[panel]
	if !ok {
		run = &panelRun{}
		g.runs[panel] = run
	}
	if run.cancel != nil {
		run.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	run.gen++
	run.state = models.InsightLoading
	run.cancel = cancel
	return run.gen, ctx
}

// Settle records the terminal state for gen. It reports false, and changes
// nothing, when gen is stale or the panel already settled.
func (g *Generations) Settle(panel models.Panel, gen uint64, state models.InsightState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	run, ok := g.runs[panel]
	if !ok || run.gen != gen || run.state != models.InsightLoading {
		return false
	}
	run.state = state
	if run.cancel != nil {
		run.cancel()
		run.cancel = nil
	}
	return true
}

// Current returns the current generation and state of panel.
func (g *Generations) Current(panel models.Panel) (uint64, models.InsightState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	run, ok := g.runs[panel]
	if !ok {
		return 0, models.InsightIdle
	}
	return run.gen, run.state
}

// Close cancels every in-flight request.
func (g *Generations) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, run := range g.runs {
		if run.cancel != nil {
			run.cancel()
			run.cancel = nil
		}
	}
}
