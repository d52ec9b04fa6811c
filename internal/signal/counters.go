package signal

import (
	"math"
	"sync/atomic"
)

// Counters are the run totals read by the stats timer. They only grow.
type Counters struct {
	frames    atomic.Uint64
	simframes atomic.Uint64
	simtime   atomic.Uint64 // float64 bits
}

// AddFrame counts one presented frame.
func (c *Counters) AddFrame() { c.frames.Add(1) }

// AddStep counts one solver step of length dt.
func (c *Counters) AddStep(dt float64) {
	c.simframes.Add(1)
	for {
		old := c.simtime.Load()
		next := math.Float64bits(math.Float64frombits(old) + dt)
		if c.simtime.CompareAndSwap(old, next) {
			return
		}
	}
}

func (c *Counters) Frames() uint64    { return c.frames.Load() }
func (c *Counters) SimFrames() uint64 { return c.simframes.Load() }

// SimTime is the simulated time accumulated by AddStep.
func (c *Counters) SimTime() float64 { return math.Float64frombits(c.simtime.Load()) }
