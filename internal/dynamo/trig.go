package dynamo

import "math"

// TrigTable holds precomputed sine values over one period.
// Lookups interpolate linearly between entries, so results are
// deterministic across platforms for identical inputs.
type TrigTable struct {
	sin []float64
	n   int
}

// DefaultTrigTable has 4096 entries (~0.0015 rad resolution).
var DefaultTrigTable = NewTrigTable(4096)

func NewTrigTable(n int) *TrigTable {
	t := &TrigTable{sin: make([]float64, n), n: n}
	for i := 0; i < n; i++ {
		t.sin[i] = math.Sin(float64(i) * 2 * math.Pi / float64(n))
	}
	return t
}

func (t *TrigTable) Sin(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	idx := x * float64(t.n) / (2 * math.Pi)
	i := int(idx)
	f := idx - float64(i)
	return t.sin[i%t.n]*(1-f) + t.sin[(i+1)%t.n]*f
}

func FastSin(x float64) float64 { return DefaultTrigTable.Sin(x) }
