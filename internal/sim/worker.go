// Package sim runs the solver on a background goroutine and hands each
// finished step to the main loop through the shared mailbox.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/fluidviz/internal/signal"
)

// Worker is the simulation producer. It owns the solver: the consumer may
// only read solver state while a snapshot is pending.
type Worker struct {
	solver   Solver
	source   Source
	sig      *signal.Shared
	counters *signal.Counters
	cfg      Config
	log      *slog.Logger

	steps uint64
	t     float64
}

func NewWorker(solver Solver, source Source, sig *signal.Shared, counters *signal.Counters, cfg Config, log *slog.Logger) (*Worker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		solver:   solver,
		source:   source,
		sig:      sig,
		counters: counters,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run steps the solver each time the mailbox is free and the run is not
// paused. It returns nil after Quit or ctx cancellation; a solver failure
// requests quit and is returned.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Debug("worker: started", "dt", w.cfg.Dt)
	for w.sig.WaitProducible(ctx) {
		if w.source != nil {
			w.source.Inject(w.t)
		}
		if err := w.solver.Step(float32(w.cfg.Dt)); err != nil {
			w.log.Error("worker: step failed", "step", w.steps, "t", w.t, "err", err)
			w.sig.Quit()
			return fmt.Errorf("simulation: %w", err)
		}
		w.sig.Post()
		w.t += w.cfg.Dt
		w.steps++
		w.counters.AddStep(w.cfg.Dt)

		if w.cfg.MaxSteps > 0 && w.steps >= w.cfg.MaxSteps {
			w.log.Info("worker: step limit reached", "steps", w.steps)
			w.sig.Quit()
			break
		}
	}
	w.log.Debug("worker: stopped", "steps", w.steps, "t", w.t)
	return nil
}

// Steps is the number of completed steps. Only valid after Run returned.
func (w *Worker) Steps() uint64 { return w.steps }
