package dynamo

import (
	"fmt"
	"math"
)

// MaxGrid is the largest interior size a grid or a recording may have.
const MaxGrid = 512

// Grid describes a cubic cell grid with N interior cells per axis.
type Grid struct {
	N int
}

func NewGrid(n int) Grid { return Grid{N: n} }

// Side is the number of cells per axis including the boundary.
func (g Grid) Side() int { return g.N + 2 }

// Cells is the total number of cells including the boundary.
func (g Grid) Cells() int {
	s := g.Side()
	return s * s * s
}

// Index maps (i, j, k) to the flat offset. No bounds checks.
func (g Grid) Index(i, j, k int) int {
	s := g.Side()
	return i + s*(j+s*k)
}

// Contains reports whether (i, j, k) lies inside the grid, boundary included.
func (g Grid) Contains(i, j, k int) bool {
	s := g.Side()
	return i >= 0 && i < s && j >= 0 && j < s && k >= 0 && k < s
}

func (g Grid) NewField() Field { return make(Field, g.Cells()) }

// Sample interpolates f trilinearly at cell coordinates (x, y, z), which are
// clamped to the centres of the outermost interior cells' neighbours.
func (g Grid) Sample(f Field, x, y, z float32) float32 {
	hi := float32(g.N) + 0.5
	x, y, z = clamp32(x, 0.5, hi), clamp32(y, 0.5, hi), clamp32(z, 0.5, hi)
	i0, j0, k0 := int(x), int(y), int(z)
	s1, t1, u1 := x-float32(i0), y-float32(j0), z-float32(k0)
	s0, t0, u0 := 1-s1, 1-t1, 1-u1
	a := g.Index(i0, j0, k0)
	side := g.Side()
	dy, dz := side, side*side
	return s0*(t0*(u0*f[a]+u1*f[a+dz])+t1*(u0*f[a+dy]+u1*f[a+dy+dz])) +
		s1*(t0*(u0*f[a+1]+u1*f[a+1+dz])+t1*(u0*f[a+1+dy]+u1*f[a+1+dy+dz]))
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (g Grid) String() string { return fmt.Sprintf("%d^3", g.N) }

// Field is a scalar quantity sampled on every cell of a Grid.
type Field []float32

func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

func (f Field) Zero() {
	for i := range f {
		f[i] = 0
	}
}

func (f Field) Sum() float64 {
	sum := 0.0
	for _, v := range f {
		sum += float64(v)
	}
	return sum
}

func (f Field) Max() float32 {
	var m float32
	for _, v := range f {
		if v > m {
			m = v
		}
	}
	return m
}

func (f Field) IsValid() bool {
	for _, v := range f {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
