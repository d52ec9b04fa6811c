package gui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/fluidviz/internal/clock"
	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/physics"
	"github.com/san-kum/fluidviz/internal/signal"
	"github.com/san-kum/fluidviz/internal/store"
	"github.com/san-kum/fluidviz/internal/viz"
)

func newTestLoop(mode Mode, fe Frontend) *Loop {
	counters := &signal.Counters{}
	v := viz.NewViewer(16, true, nil)
	v.SetViewport(fe.Size())
	return &Loop{
		mode:     mode,
		fe:       fe,
		viewer:   v,
		sig:      signal.New(),
		counters: counters,
		stats:    clock.NewStats(counters),
		log:      slog.New(slog.DiscardHandler),
	}
}

func TestHandleToggles(t *testing.T) {
	tests := []struct {
		key   rune
		check func(v *viz.Viewer) bool
	}{
		// A second toggle reports the state the key left behind.
		{'c', func(v *viz.Viewer) bool { return v.ToggleCube() }},
		{'i', func(v *viz.Viewer) bool { return v.ToggleInfo() }},
		{'s', func(v *viz.Viewer) bool { return !v.ToggleSliceOutline() }},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			l := newTestLoop(Simulate, newFake(32, 32))
			if l.handle(key(tt.key)) {
				t.Fatal("toggle should not stop the loop")
			}
			if !l.redraw {
				t.Error("toggle should force a redraw")
			}
			if !tt.check(l.viewer) {
				t.Errorf("key %q did not toggle", tt.key)
			}
		})
	}
}

func TestHandleEscapeQuits(t *testing.T) {
	l := newTestLoop(Simulate, newFake(32, 32))
	if !l.handle(key(KeyEscape)) {
		t.Fatal("escape should stop the loop")
	}
	if !l.sig.Quitting() {
		t.Error("escape should request quit")
	}
}

func TestHandleUnknownKeyIgnored(t *testing.T) {
	l := newTestLoop(Simulate, newFake(32, 32))
	if l.handle(key('x')) || l.redraw || l.sig.Quitting() {
		t.Error("unbound key changed loop state")
	}
}

func TestHandlePauseShowsInOverlay(t *testing.T) {
	fe := newFake(32, 32)
	l := newTestLoop(Simulate, fe)

	l.handle(key(' '))
	if !l.sig.Paused() {
		t.Fatal("space should pause")
	}
	if err := l.present(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fe.LastOverlay(), "[paused]") {
		t.Errorf("overlay %q does not show pause", fe.LastOverlay())
	}

	l.handle(key(' '))
	if l.sig.Paused() {
		t.Error("second space should resume")
	}
}

func TestHandleSliceKeys(t *testing.T) {
	l := newTestLoop(Simulate, newFake(32, 32))
	g := dynamo.NewGrid(8)
	if err := l.viewer.IngestFromSimulation(g, g.NewField()); err != nil {
		t.Fatal(err)
	}
	start := l.viewer.Slice()
	l.handle(key(']'))
	l.handle(key(']'))
	l.handle(key('['))
	if got := l.viewer.Slice(); got != start+1 {
		t.Errorf("slice = %d, want %d", got, start+1)
	}
}

func TestHandlePointer(t *testing.T) {
	l := newTestLoop(Simulate, newFake(100, 100))
	cam := l.viewer.Camera()
	rotY, dist := cam.RotY, cam.Distance

	l.handle(Event{Kind: EventButtonDown, Buttons: ButtonLeft, X: 10, Y: 10})
	l.handle(Event{Kind: EventMotion, Buttons: ButtonLeft, X: 60, Y: 10})
	if cam.RotY == rotY {
		t.Error("left drag did not rotate the camera")
	}

	l.handle(Event{Kind: EventWheel, Wheel: 1})
	if cam.Distance >= dist {
		t.Errorf("wheel up should move closer: %v -> %v", dist, cam.Distance)
	}

	rotY = cam.RotY
	l.handle(Event{Kind: EventButtonDown, Buttons: ButtonRight, X: 10, Y: 10})
	l.handle(Event{Kind: EventMotion, Buttons: ButtonRight, X: 90, Y: 40})
	if cam.RotY != rotY {
		t.Error("right drag should move the light, not the camera")
	}
}

func TestHandleResize(t *testing.T) {
	l := newTestLoop(Simulate, newFake(32, 32))
	l.handle(Event{Kind: EventResize, Width: 200, Height: 100})
	if w, h := l.viewer.Viewport(); w != 200 || h != 100 {
		t.Errorf("viewport %dx%d, want 200x100", w, h)
	}
	if w, h := l.viewer.RenderSize(); w != 16 || h != 8 {
		t.Errorf("render size %dx%d, want 16x8", w, h)
	}
}

func TestLoopRunStopsOnEscape(t *testing.T) {
	fe := newFake(32, 32, scripted{after: 1, ev: key('i')}, scripted{after: 2, ev: key(KeyEscape)})
	l := newTestLoop(Simulate, fe)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on escape")
	}
	if fe.Presents() != 2 {
		t.Errorf("presented %d frames, want 2", fe.Presents())
	}
	if l.counters.Frames() != 2 {
		t.Errorf("frame counter %d, want 2", l.counters.Frames())
	}
	if fe.LastOverlay() != "" {
		t.Errorf("info was toggled off but overlay is %q", fe.LastOverlay())
	}
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	l := newTestLoop(Simulate, newFake(32, 32))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
	if !l.sig.Quitting() {
		t.Error("cancel should request quit")
	}
}

func TestLoopPlaybackErrorEndsRun(t *testing.T) {
	l := newTestLoop(Play, newFake(32, 32))
	l.sig.Post()

	// No recording is open, so the load fails and the loop quits with it.
	if err := l.Run(context.Background()); err == nil {
		t.Fatal("expected a playback error")
	}
	if l.sig.Pending() {
		t.Error("snapshot was not consumed")
	}
	if !l.sig.Quitting() {
		t.Error("playback error should request quit")
	}
}

var errDiskFull = errors.New("disk full")

// shortWriter accepts n bytes, then fails.
type shortWriter struct{ n int }

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		k := w.n
		w.n = 0
		return k, errDiskFull
	}
	w.n -= len(p)
	return len(p), nil
}

func TestLoopWriteFailureDisablesRecording(t *testing.T) {
	l := newTestLoop(Simulate, newFake(16, 16))
	l.fluid = physics.NewFluid(4)
	frameBytes := l.fluid.Grid.Cells() * 4

	var err error
	l.rec, err = store.NewWriter(&shortWriter{n: store.HeaderSize + frameBytes})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		l.fluid.Density()[l.fluid.Index(2, 2, 2)] = float32(i + 1)
		l.consume()
	}
	if !errors.Is(l.recErr, errDiskFull) {
		t.Fatalf("recErr = %v, want disk full", l.recErr)
	}
	if n := l.rec.Frames(); n != 1 {
		t.Errorf("recorded %d frames, want 1", n)
	}
	if got := l.viewer.Density()[l.fluid.Index(2, 2, 2)]; got != 3 {
		t.Errorf("viewer holds %v, want the last snapshot", got)
	}
}

func TestLoopLoadsOneFramePerTick(t *testing.T) {
	path := writeRecording(t, dynamo.NewGrid(4), 12)
	fe := newGated(32, 32)
	l := newTestLoop(Play, fe)
	if err := l.viewer.Open(path); err != nil {
		t.Fatal(err)
	}
	pacer := clock.NewPacer(l.sig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	enter := func() {
		t.Helper()
		select {
		case <-fe.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not render")
		}
	}
	// loaded is only read while the loop is blocked in Present.
	loaded := func() int {
		pos, _ := l.viewer.Position()
		return pos + 1
	}

	enter()
	ticks := 0
	for _, burst := range []int{1, 2, 2, 1, 2, 1} {
		for i := 0; i < burst; i++ {
			pacer.Tick()
			ticks++
		}
		fe.release <- struct{}{}
		for {
			enter()
			if !l.sig.Pending() {
				break
			}
			fe.release <- struct{}{}
		}
		if got := loaded(); got != ticks {
			t.Fatalf("after %d ticks (burst of %d) loaded %d frames", ticks, burst, got)
		}
	}

	cancel()
	fe.release <- struct{}{}
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
