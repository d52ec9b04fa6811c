package physics

import (
	"math"
	"math/rand"

	"github.com/san-kum/fluidviz/internal/dynamo"
)

const patternTerms = 4

// RandParams returns n uniform values in [0, 1) drawn from seed.
// The same seed always yields the same vector.
func RandParams(n int, seed int64) []float64 {
	rnd := rand.New(rand.NewSource(seed))
	p := make([]float64, n)
	for i := range p {
		p[i] = rnd.Float64()
	}
	return p
}

// Pattern is the procedural source injected every simulation step.
// Value depends only on the cell coordinates, the simulated time and the
// parameter vector fixed at construction.
type Pattern struct {
	params []float64
}

func NewPattern(params []float64) *Pattern {
	p := make([]float64, patternTerms*5)
	copy(p, params)
	return &Pattern{params: p}
}

func (p *Pattern) Params() []float64 { return p.params }

// Value returns a strength in [0, 1] for cell (i, j) of a w x h patch.
// It is a sum of travelling sine waves whose weights, spatial
// frequencies, temporal frequency and phase come from the parameters.
func (p *Pattern) Value(i, j, w, h int, t float64) float64 {
	x, y := float64(i)/float64(w), float64(j)/float64(h)
	sum, norm := 0.0, 0.0
	for m := 0; m < patternTerms; m++ {
		a, fx, fy, om, ph := p.params[m*5], p.params[m*5+1], p.params[m*5+2], p.params[m*5+3], p.params[m*5+4]
		arg := 2*math.Pi*(1+3*fx)*x + 2*math.Pi*(1+3*fy)*y + (0.5+2*om)*t + 2*math.Pi*ph
		sum += a * dynamo.FastSin(arg)
		norm += a
	}
	if norm == 0 {
		return 0.5
	}
	v := 0.5 + 0.5*sum/norm
	return math.Max(0, math.Min(1, v))
}

// Patch places a square source on the x = X plane spanning
// y in [Y, Y+Size) and z in [Z, Z+Size).
type Patch struct {
	X, Y, Z, Size int
	Velocity      float32
}

// Fits reports whether the patch lies inside the interior of g.
func (pt Patch) Fits(g dynamo.Grid) bool {
	in := func(v int) bool { return v >= 1 && v <= g.N }
	return pt.Size > 0 && in(pt.X) && in(pt.Y) && in(pt.Z) && in(pt.Y+pt.Size-1) && in(pt.Z+pt.Size-1)
}

// Inject writes the pattern into density and the patch velocity into the
// x component of every patch cell.
func (p *Pattern) Inject(f *Fluid, pt Patch, t float64) {
	for i := 0; i < pt.Size; i++ {
		for j := 0; j < pt.Size; j++ {
			idx := f.Index(pt.X, pt.Y+i, pt.Z+j)
			f.D[idx] = float32(p.Value(i, j, pt.Size, pt.Size, t))
			f.U[idx] = pt.Velocity
		}
	}
}
