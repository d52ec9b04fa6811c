package analysis

import (
	"errors"
	"fmt"

	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/store"
)

// FillThreshold is the density above which a cell counts as filled.
const FillThreshold = 0.01

// Report holds one value per recorded frame.
type Report struct {
	Header store.Header
	Mass   []float64
	Peak   []float64
	Filled []int
}

func (r *Report) Frames() int { return len(r.Mass) }

// Scan reads every remaining frame of r. A truncated recording yields the
// frames before the damage together with the error.
func Scan(r *store.Reader) (*Report, error) {
	rep := &Report{Header: r.Header()}
	n := int(rep.Header.Frames)
	rep.Mass = make([]float64, 0, n)
	rep.Peak = make([]float64, 0, n)
	rep.Filled = make([]int, 0, n)

	for {
		f, err := r.Next()
		if errors.Is(err, store.ErrEndOfData) {
			return rep, nil
		}
		if err != nil {
			return rep, fmt.Errorf("scan: %w", err)
		}
		rep.add(f)
	}
}

func (r *Report) add(f dynamo.Field) {
	filled := 0
	for _, v := range f {
		if v > FillThreshold {
			filled++
		}
	}
	r.Mass = append(r.Mass, f.Sum())
	r.Peak = append(r.Peak, float64(f.Max()))
	r.Filled = append(r.Filled, filled)
}

// Stats is the range and mean of a series.
type Stats struct {
	Min, Max, Mean float64
}

func Describe(series []float64) Stats {
	if len(series) == 0 {
		return Stats{}
	}
	s := Stats{Min: series[0], Max: series[0]}
	sum := 0.0
	for _, v := range series {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		sum += v
	}
	s.Mean = sum / float64(len(series))
	return s
}
