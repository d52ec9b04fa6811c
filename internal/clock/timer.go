// Package clock provides the periodic callbacks of a run: the once-a-second
// statistics sample and the playback pacer.
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// PlaybackInterval is the virtual frame period used when replaying.
const PlaybackInterval = 1000 * time.Millisecond / 16

// StatsInterval is the period of the status line sample.
const StatsInterval = time.Second

// Timer calls fn every interval on its own goroutine. fn must not block.
type Timer struct {
	interval time.Duration
	fn       func()

	ticks atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

func NewTimer(interval time.Duration, fn func()) *Timer {
	return &Timer{
		interval: interval,
		fn:       fn,
		stopChan: make(chan struct{}),
	}
}

// Start launches the timer goroutine. Further calls do nothing.
func (t *Timer) Start() {
	if t.running.CompareAndSwap(false, true) {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.loop(context.Background())
		}()
	}
}

// Stop halts the timer and waits for an in-flight callback to return.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
	t.wg.Wait()
}

// Run ticks on the calling goroutine until ctx is done or Stop is called.
func (t *Timer) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}
	t.wg.Add(1)
	defer t.wg.Done()
	t.loop(ctx)
	return nil
}

// Ticks is the number of callbacks made so far.
func (t *Timer) Ticks() uint64 { return t.ticks.Load() }

func (t *Timer) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fn()
			t.ticks.Add(1)
		}
	}
}
