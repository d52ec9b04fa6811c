// Package gui wires a run together: the simulation worker or playback
// pacer, the stats timer and the foreground loop drawing into a Frontend.
package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fluidviz/internal/clock"
	"github.com/san-kum/fluidviz/internal/config"
	"github.com/san-kum/fluidviz/internal/physics"
	"github.com/san-kum/fluidviz/internal/signal"
	"github.com/san-kum/fluidviz/internal/sim"
	"github.com/san-kum/fluidviz/internal/storage"
	"github.com/san-kum/fluidviz/internal/store"
	"github.com/san-kum/fluidviz/internal/viz"
)

// ErrRecording marks a run whose recording stopped early. The recording
// still holds, and its header counts, every frame written before the failure.
var ErrRecording = errors.New("recording failed")

type Options struct {
	Mode Mode
	// Path is the recording to write in Simulate mode (empty: none) or to
	// replay in Play mode.
	Path     string
	Config   *config.Config
	Preset   string
	Frontend Frontend
	Log      *slog.Logger
	// Catalog, when set, receives the run metadata and stats samples.
	Catalog *storage.Store
}

// Summary describes a finished run.
type Summary struct {
	Mode      Mode
	Path      string
	Frames    int
	Bytes     int64
	SimFrames uint64
	Rendered  uint64
	SimTime   float64
	RunID     string
}

// String is the exit line of a recording run.
func (s Summary) String() string {
	return fmt.Sprintf("%d frames written to file %s, %d kiB", s.Frames, s.Path, s.Bytes>>10)
}

// Run executes one SIMULATE or PLAY session and blocks until the user quits
// or ctx ends. A playback file that cannot be opened fails before any
// goroutine starts.
func Run(ctx context.Context, opts Options) (Summary, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	fe := opts.Frontend
	if fe == nil {
		return Summary{}, errors.New("gui: no frontend")
	}

	sum := Summary{Mode: opts.Mode, Path: opts.Path}
	viewer := viz.NewViewer(cfg.View.Resolution, cfg.View.Loop, viz.GetPalette(cfg.View.Palette))
	viewer.SetViewport(fe.Size())
	defer viewer.Close()

	sig := signal.New()
	counters := &signal.Counters{}
	stats := clock.NewStats(counters)
	loop := &Loop{
		mode:     opts.Mode,
		fe:       fe,
		viewer:   viewer,
		sig:      sig,
		counters: counters,
		stats:    stats,
		log:      log,
	}

	var worker *sim.Worker
	switch opts.Mode {
	case Play:
		if err := viewer.Open(opts.Path); err != nil {
			return sum, err
		}
	case Simulate:
		loop.fluid = cfg.Fluid()
		pattern := physics.NewPattern(physics.RandParams(20, cfg.Sim.Seed))
		patch := cfg.Patch()
		src := sim.SourceFunc(func(t float64) { pattern.Inject(loop.fluid, patch, t) })

		var err error
		worker, err = sim.NewWorker(loop.fluid, src, sig, counters, sim.Config{Dt: cfg.Sim.Dt, MaxSteps: cfg.Sim.MaxSteps}, log)
		if err != nil {
			return sum, err
		}
		if opts.Path != "" {
			if loop.rec, err = store.Create(opts.Path); err != nil {
				return sum, err
			}
		}
	}

	log.Info("gui: run starting", "mode", opts.Mode, "path", opts.Path, "grid", cfg.Grid)
	started := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	statsTimer := clock.NewTimer(cfg.Timers.Stats, stats.Tick)
	g.Go(func() error { return statsTimer.Run(gctx) })
	switch opts.Mode {
	case Simulate:
		g.Go(func() error { return worker.Run(gctx) })
	case Play:
		pacer := clock.NewPacer(sig)
		pacerTimer := clock.NewTimer(cfg.Timers.Playback, pacer.Tick)
		g.Go(func() error { return pacerTimer.Run(gctx) })
	}

	loopErr := loop.Run(gctx)
	sig.Quit()
	cancel()
	workErr := g.Wait()

	var recErr error
	if loop.rec != nil {
		// The worker posted its last step before exiting; record it so the
		// header matches simframes.
		sig.Consume(loop.consume)
		h, err := loop.rec.Finalize(loop.fluid.Grid)
		if err != nil {
			recErr = fmt.Errorf("finalize %s: %w", opts.Path, err)
		} else if loop.recErr != nil {
			recErr = fmt.Errorf("%w: %s: %w", ErrRecording, opts.Path, loop.recErr)
		}
		sum.Frames = int(h.Frames)
		sum.Bytes = loop.rec.Size()
	}

	sum.SimFrames = counters.SimFrames()
	sum.Rendered = counters.Frames()
	sum.SimTime = counters.SimTime()
	err := errors.Join(loopErr, workErr, recErr)

	log.Info("gui: run finished",
		"mode", opts.Mode,
		"elapsed", time.Since(started).Round(time.Millisecond),
		"simframes", sum.SimFrames,
		"frames", sum.Rendered,
		"recorded", sum.Frames,
		"err", err,
	)

	if opts.Catalog != nil || loop.rec != nil {
		meta := runMetadata(cfg, opts, sum, err)
		sum.RunID = meta.ID
		if loop.rec != nil {
			if werr := storage.WriteSidecar(opts.Path, meta); werr != nil {
				log.Warn("gui: sidecar not written", "err", werr)
			}
		}
		if opts.Catalog != nil {
			if werr := opts.Catalog.Save(meta, samples(stats.History())); werr != nil {
				log.Warn("gui: run not catalogued", "dir", opts.Catalog.Dir(), "err", werr)
			}
		}
	}
	return sum, err
}

func runMetadata(cfg *config.Config, opts Options, sum Summary, runErr error) *storage.RunMetadata {
	meta := &storage.RunMetadata{
		ID:             storage.NewRunID(),
		Mode:           opts.Mode.String(),
		Preset:         opts.Preset,
		Recording:      opts.Path,
		Timestamp:      time.Now().UTC(),
		Grid:           cfg.Grid,
		Dt:             cfg.Sim.Dt,
		Seed:           cfg.Sim.Seed,
		Diffusion:      cfg.Sim.Diffusion,
		Viscosity:      cfg.Sim.Viscosity,
		Buoyancy:       cfg.Sim.Buoyancy,
		Vorticity:      cfg.Sim.Vorticity,
		SimFrames:      sum.SimFrames,
		Frames:         sum.Rendered,
		RecordedFrames: sum.Frames,
		Bytes:          sum.Bytes,
		SimTime:        sum.SimTime,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	return meta
}

func samples(h []clock.Sample) []storage.Sample {
	out := make([]storage.Sample, len(h))
	for i, s := range h {
		out[i] = storage.Sample{Elapsed: s.Elapsed, FPS: s.FPS, SFPS: s.SFPS, SimFrames: s.SimFrames}
	}
	return out
}
