package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/fluidviz/internal/signal"
)

// Stats samples the run counters once per tick and keeps the status line
// built from the deltas.
type Stats struct {
	counters *signal.Counters
	start    time.Time

	mu            sync.Mutex
	history       []Sample
	lastFrames    uint64
	lastSimFrames uint64
	fps, sfps     uint64
	info          string
}

// Sample is the state of one Tick.
type Sample struct {
	Elapsed   time.Duration
	FPS       uint64
	SFPS      uint64
	SimFrames uint64
}

// maxHistory bounds the kept samples to one hour at one tick per second.
const maxHistory = 3600

func NewStats(c *signal.Counters) *Stats {
	s := &Stats{counters: c, start: time.Now()}
	s.info = s.format()
	return s
}

// Tick takes a sample. It is meant to run every StatsInterval, which makes
// the deltas per-second rates.
func (s *Stats) Tick() {
	frames, simframes := s.counters.Frames(), s.counters.SimFrames()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = frames - s.lastFrames
	s.sfps = simframes - s.lastSimFrames
	s.lastFrames, s.lastSimFrames = frames, simframes
	s.info = s.format()

	if len(s.history) == maxHistory {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, Sample{
		Elapsed:   time.Since(s.start),
		FPS:       s.fps,
		SFPS:      s.sfps,
		SimFrames: simframes,
	})
}

// History returns a copy of the samples taken so far, oldest first.
func (s *Stats) History() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Stats) format() string {
	return fmt.Sprintf("FPS: %d, sFPS: %d, simframes: %d", s.fps, s.sfps, s.lastSimFrames)
}

// Info is the latest status line.
func (s *Stats) Info() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Rates returns the last sampled frames and simframes per tick.
func (s *Stats) Rates() (fps, sfps uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps, s.sfps
}

// Pacer turns timer ticks into playback frames by posting to the mailbox.
type Pacer struct {
	sig *signal.Shared
}

func NewPacer(sig *signal.Shared) *Pacer { return &Pacer{sig: sig} }

func (p *Pacer) Tick() { p.sig.Post() }
