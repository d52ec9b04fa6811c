package sim

import (
	"fmt"

	"github.com/san-kum/fluidviz/internal/dynamo"
)

// Solver advances the field state. Density is read by the consumer only
// while a snapshot is pending.
type Solver interface {
	Step(dt float32) error
	Density() dynamo.Field
}

// Source adds material to the solver before each step.
type Source interface {
	Inject(t float64)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(t float64)

func (f SourceFunc) Inject(t float64) { f(t) }

type Config struct {
	Dt float64
	// MaxSteps stops the worker after that many steps; 0 runs until quit.
	MaxSteps uint64
}

func (c Config) validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	return nil
}
