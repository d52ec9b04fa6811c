package gui

import (
	"image"
	"sync"
)

// scripted is an event released once the frontend has presented at least
// after frames.
type scripted struct {
	after int
	ev    Event
}

type fakeFrontend struct {
	mu       sync.Mutex
	w, h     int
	script   []scripted
	presents int
	overlays []string
	closed   bool
}

func newFake(w, h int, script ...scripted) *fakeFrontend {
	return &fakeFrontend{w: w, h: h, script: script}
}

func (f *fakeFrontend) Size() (int, int) { return f.w, f.h }

func (f *fakeFrontend) Poll() (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.script) == 0 || f.script[0].after > f.presents {
		return Event{}, false
	}
	ev := f.script[0].ev
	f.script = f.script[1:]
	return ev, true
}

func (f *fakeFrontend) Pending() <-chan struct{} { return nil }

func (f *fakeFrontend) Present(img *image.RGBA, overlay string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presents++
	f.overlays = append(f.overlays, overlay)
	return nil
}

func (f *fakeFrontend) Close() error {
	f.closed = true
	return nil
}

func (f *fakeFrontend) Presents() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presents
}

func (f *fakeFrontend) LastOverlay() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.overlays) == 0 {
		return ""
	}
	return f.overlays[len(f.overlays)-1]
}

func key(r rune) Event { return Event{Kind: EventKeyUp, Key: r} }

// gatedFrontend holds every Present until the test releases it, so ticks can
// be delivered while the loop is mid-render.
type gatedFrontend struct {
	*fakeFrontend
	entered chan struct{}
	release chan struct{}
}

func newGated(w, h int) *gatedFrontend {
	return &gatedFrontend{
		fakeFrontend: newFake(w, h),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedFrontend) Present(img *image.RGBA, overlay string) error {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeFrontend.Present(img, overlay)
}
