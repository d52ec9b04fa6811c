package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/fluidviz/internal/clock"
	"github.com/san-kum/fluidviz/internal/physics"
	"github.com/san-kum/fluidviz/internal/signal"
	"github.com/san-kum/fluidviz/internal/store"
	"github.com/san-kum/fluidviz/internal/viz"
)

type Mode int

const (
	Simulate Mode = iota
	Play
)

func (m Mode) String() string {
	if m == Play {
		return "play"
	}
	return "simulate"
}

// pollInterval bounds the idle wait for frontends without an input channel.
const pollInterval = 10 * time.Millisecond

// Loop is the foreground loop: the only place input is handled and frames
// are drawn. It consumes snapshots from the mailbox.
type Loop struct {
	mode     Mode
	fe       Frontend
	viewer   *viz.Viewer
	sig      *signal.Shared
	counters *signal.Counters
	stats    *clock.Stats
	log      *slog.Logger

	fluid  *physics.Fluid
	rec    *store.Writer
	recErr error

	playErr error
	redraw  bool
}

// Run handles input, consumes snapshots and renders until quit is
// requested by the user, by another goroutine or through ctx.
func (l *Loop) Run(ctx context.Context) error {
	l.redraw = true
	for {
		if l.handleInput() {
			return nil
		}
		if l.sig.Quitting() {
			return l.playErr
		}

		if l.sig.Pending() {
			l.sig.Consume(l.consume)
			l.redraw = true
		}

		if l.redraw {
			if err := l.present(); err != nil {
				l.sig.Quit()
				return err
			}
			continue
		}

		if err := l.wait(ctx); err != nil {
			l.sig.Quit()
			return nil
		}
	}
}

func (l *Loop) wait(ctx context.Context) error {
	var idle <-chan time.Time
	pending := l.fe.Pending()
	if pending == nil {
		t := time.NewTimer(pollInterval)
		defer t.Stop()
		idle = t.C
	}
	select {
	case <-pending:
	case <-idle:
	case <-l.sig.Ready():
	case <-l.sig.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (l *Loop) present() error {
	info := l.stats.Info()
	if l.sig.Paused() {
		info += " [paused]"
	}
	if l.mode == Play {
		pos, n := l.viewer.Position()
		info += fmt.Sprintf(", frame %d/%d", pos+1, n)
	}
	if l.rec != nil && l.recErr == nil {
		info += fmt.Sprintf(", rec %d", l.rec.Frames())
	}
	l.viewer.SetInfo(info)

	img := l.viewer.Render()
	overlay, show := l.viewer.Info()
	if !show {
		overlay = ""
	}
	if err := l.fe.Present(img, overlay); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	l.redraw = false
	l.counters.AddFrame()
	return nil
}

// consume runs while the producer is blocked, so the solver state is stable.
func (l *Loop) consume() {
	switch l.mode {
	case Simulate:
		if err := l.viewer.IngestFromSimulation(l.fluid.Grid, l.fluid.Density()); err != nil {
			l.log.Error("gui: ingest failed", "err", err)
		}
		if l.rec != nil && l.recErr == nil {
			if err := l.rec.WriteFrame(l.fluid.Density()); err != nil {
				l.recErr = err
				l.log.Error("gui: recording disabled", "frames", l.rec.Frames(), "err", err)
			}
		}
	case Play:
		err := l.viewer.LoadNextFrame()
		switch {
		case err == nil:
		case errors.Is(err, store.ErrEndOfData):
			// holding the last frame
		default:
			l.log.Error("gui: playback failed", "err", err)
			l.playErr = err
			l.sig.Quit()
		}
	}
}

// handleInput drains queued input. It reports whether the loop must stop.
func (l *Loop) handleInput() bool {
	for {
		ev, ok := l.fe.Poll()
		if !ok {
			return false
		}
		if l.handle(ev) {
			return true
		}
	}
}

func (l *Loop) handle(ev Event) bool {
	v := l.viewer
	switch ev.Kind {
	case EventKeyUp:
		switch ev.Key {
		case KeyEscape:
			l.log.Debug("gui: escape pressed")
			l.sig.Quit()
			return true
		case 'c':
			v.ToggleCube()
			l.redraw = true
		case 'i':
			v.ToggleInfo()
			l.redraw = true
		case 's':
			v.ToggleSliceOutline()
			l.redraw = true
		case '[':
			v.MoveSlice(-1)
			l.redraw = true
		case ']':
			v.MoveSlice(1)
			l.redraw = true
		case ' ':
			paused := l.sig.TogglePause()
			l.log.Debug("gui: pause toggled", "paused", paused)
			l.redraw = true
		}
	case EventQuit:
		l.sig.Quit()
		return true
	case EventResize:
		v.SetViewport(ev.Width, ev.Height)
		l.redraw = true
	case EventWheel:
		_, h := v.Viewport()
		v.SetAnchor(0, 0)
		v.Dolly(-ev.Wheel * h / 10)
		l.redraw = true
	case EventButtonDown:
		v.SetAnchor(ev.X, ev.Y)
	case EventMotion:
		switch {
		case ev.Buttons&ButtonLeft != 0:
			v.Rotate(ev.X, ev.Y)
			l.redraw = true
		case ev.Buttons&ButtonRight != 0:
			v.RotateLight(ev.X, ev.Y)
			l.redraw = true
		}
	}
	return false
}
