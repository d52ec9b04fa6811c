// Package signal holds the state shared between the simulation worker, the
// timers and the main loop: a single-slot coalescing mailbox plus the pause
// and quit flags, and the run counters.
//
// A producer (the worker after a step, or the playback timer) calls Post.
// The main loop consumes at most one pending snapshot per Consume call.
// Posts that arrive while a snapshot is being consumed collapse into a
// single further pending snapshot.
package signal

import (
	"context"
	"sync"
)

// Shared is the mailbox and flag set. The zero value is not usable; call New.
type Shared struct {
	mu   sync.Mutex
	cond *sync.Cond

	paused    bool
	quitting  bool
	update    bool
	wasupdate bool

	posts     uint64
	coalesced uint64
	consumed  uint64

	ready    chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// Stats reports mailbox traffic since creation.
type Stats struct {
	Posts     uint64
	Coalesced uint64
	Consumed  uint64
}

func New() *Shared {
	s := &Shared{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Post marks a new snapshot as available. A post that finds the previous one
// still unconsumed is counted as coalesced.
func (s *Shared) Post() {
	s.mu.Lock()
	if s.update {
		s.coalesced++
	}
	s.wasupdate = s.update
	s.update = true
	s.posts++
	s.cond.Broadcast()
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Pending reports whether a snapshot is waiting to be consumed.
func (s *Shared) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update
}

// Consume runs fn if a snapshot is pending and then retires it. fn runs
// without the lock held. A post that landed on an unconsumed snapshot
// leaves one more pending afterwards, so consecutive consumes see at most
// two of any burst. It reports whether fn ran.
func (s *Shared) Consume(fn func()) bool {
	s.mu.Lock()
	if !s.update {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	s.update = s.wasupdate
	s.wasupdate = false
	s.consumed++
	s.cond.Broadcast()
	s.mu.Unlock()
	return true
}

// WaitProducible blocks until the producer may compute the next snapshot:
// not paused and nothing pending. It returns false once Quit was called or
// ctx is done.
func (s *Shared) WaitProducible(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.quitting && ctx.Err() == nil && (s.paused || s.update) {
		s.cond.Wait()
	}
	return !s.quitting && ctx.Err() == nil
}

// TogglePause flips the paused flag and returns the new value.
func (s *Shared) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	s.cond.Broadcast()
	return s.paused
}

func (s *Shared) SetPaused(p bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = p
	s.cond.Broadcast()
}

func (s *Shared) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Quit requests shutdown. It is idempotent and cannot be undone.
func (s *Shared) Quit() {
	s.mu.Lock()
	s.quitting = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Shared) Quitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quitting
}

// Ready receives after a Post. Several posts may share one receive.
func (s *Shared) Ready() <-chan struct{} { return s.ready }

// Done is closed by the first Quit.
func (s *Shared) Done() <-chan struct{} { return s.done }

func (s *Shared) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Posts: s.posts, Coalesced: s.coalesced, Consumed: s.consumed}
}
