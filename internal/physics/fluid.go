package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/fluidviz/internal/dynamo"
)

// Fluid is a stable-fluids smoke solver on a cubic grid (semi-Lagrangian
// advection, Jacobi diffusion and pressure projection) with buoyancy and
// vorticity confinement. Distances are in cell units.
type Fluid struct {
	Grid dynamo.Grid

	Diffusion, Viscosity, Buoyancy, VortEps float32
	Iterations                              int

	// D is smoke density; U, V, W are velocity along x, y (up) and z.
	D, U, V, W dynamo.Field

	d0, u0, v0, w0   dynamo.Field
	p, div, jacobi   dynamo.Field
	cx, cy, cz, cmag dynamo.Field

	steps int
}

func NewFluid(n int) *Fluid {
	g := dynamo.NewGrid(n)
	return &Fluid{
		Grid: g, Diffusion: 0.00001, Buoyancy: 4, VortEps: 5, Iterations: 20,
		D: g.NewField(), U: g.NewField(), V: g.NewField(), W: g.NewField(),
		d0: g.NewField(), u0: g.NewField(), v0: g.NewField(), w0: g.NewField(),
		p: g.NewField(), div: g.NewField(), jacobi: g.NewField(),
		cx: g.NewField(), cy: g.NewField(), cz: g.NewField(), cmag: g.NewField(),
	}
}

func (f *Fluid) Index(i, j, k int) int { return f.Grid.Index(i, j, k) }

// Density exposes the field the recorder and renderer consume.
func (f *Fluid) Density() dynamo.Field { return f.D }

func (f *Fluid) Steps() int { return f.steps }

// Step advances velocity and then density by dt.
func (f *Fluid) Step(dt float32) error {
	f.addBuoyancy(dt)
	if f.VortEps > 0 {
		f.confineVorticity(dt)
	}

	if f.Viscosity > 0 {
		f.u0, f.U = f.U, f.u0
		f.v0, f.V = f.V, f.v0
		f.w0, f.W = f.W, f.w0
		f.diffuse(1, f.U, f.u0, f.Viscosity, dt)
		f.diffuse(2, f.V, f.v0, f.Viscosity, dt)
		f.diffuse(3, f.W, f.w0, f.Viscosity, dt)
		f.project()
	}

	copy(f.u0, f.U)
	copy(f.v0, f.V)
	copy(f.w0, f.W)
	f.advect(1, f.U, f.u0, f.u0, f.v0, f.w0, dt)
	f.advect(2, f.V, f.v0, f.u0, f.v0, f.w0, dt)
	f.advect(3, f.W, f.w0, f.u0, f.v0, f.w0, dt)
	f.project()

	if f.Diffusion > 0 {
		f.d0, f.D = f.D, f.d0
		f.diffuse(0, f.D, f.d0, f.Diffusion, dt)
	}
	copy(f.d0, f.D)
	f.advect(0, f.D, f.d0, f.U, f.V, f.W, dt)

	f.steps++
	if !f.D.IsValid() {
		return &dynamo.StepError{Step: f.steps, Wrapped: fmt.Errorf("density: %w", dynamo.ErrInvalidState)}
	}
	return nil
}

// interior runs fn over every interior cell, split across z slices.
func (f *Fluid) interior(fn func(i, j, k, idx int)) {
	n := f.Grid.N
	dynamo.ParallelFor(n, 4, func(start, end int) {
		for k := start + 1; k <= end; k++ {
			for j := 1; j <= n; j++ {
				idx := f.Grid.Index(1, j, k)
				for i := 1; i <= n; i++ {
					fn(i, j, k, idx)
					idx++
				}
			}
		}
	})
}

func (f *Fluid) addBuoyancy(dt float32) {
	if f.Buoyancy == 0 {
		return
	}
	f.interior(func(_, _, _, idx int) {
		f.V[idx] += dt * f.Buoyancy * f.D[idx]
	})
}

func (f *Fluid) confineVorticity(dt float32) {
	s := f.Grid.Side()
	sx, sy, sz := 1, s, s*s

	f.interior(func(_, _, _, idx int) {
		dwdy := (f.W[idx+sy] - f.W[idx-sy]) * 0.5
		dvdz := (f.V[idx+sz] - f.V[idx-sz]) * 0.5
		dudz := (f.U[idx+sz] - f.U[idx-sz]) * 0.5
		dwdx := (f.W[idx+sx] - f.W[idx-sx]) * 0.5
		dvdx := (f.V[idx+sx] - f.V[idx-sx]) * 0.5
		dudy := (f.U[idx+sy] - f.U[idx-sy]) * 0.5
		x, y, z := dwdy-dvdz, dudz-dwdx, dvdx-dudy
		f.cx[idx], f.cy[idx], f.cz[idx] = x, y, z
		f.cmag[idx] = float32(math.Sqrt(float64(x*x + y*y + z*z)))
	})
	setBoundary(f.Grid, 0, f.cmag)

	f.interior(func(_, _, _, idx int) {
		nx := (f.cmag[idx+sx] - f.cmag[idx-sx]) * 0.5
		ny := (f.cmag[idx+sy] - f.cmag[idx-sy]) * 0.5
		nz := (f.cmag[idx+sz] - f.cmag[idx-sz]) * 0.5
		l := float32(math.Sqrt(float64(nx*nx+ny*ny+nz*nz))) + 1e-6
		nx, ny, nz = nx/l, ny/l, nz/l
		x, y, z := f.cx[idx], f.cy[idx], f.cz[idx]
		e := dt * f.VortEps
		f.U[idx] += e * (ny*z - nz*y)
		f.V[idx] += e * (nz*x - nx*z)
		f.W[idx] += e * (nx*y - ny*x)
	})
}

func (f *Fluid) diffuse(b int, x, x0 dynamo.Field, rate, dt float32) {
	a := dt * rate
	f.linSolve(b, x, x0, a, 1+6*a)
}

// linSolve runs Jacobi sweeps so that slices can be solved in parallel.
func (f *Fluid) linSolve(b int, x, x0 dynamo.Field, a, c float32) {
	s := f.Grid.Side()
	sx, sy, sz := 1, s, s*s
	next := f.jacobi
	for it := 0; it < f.Iterations; it++ {
		f.interior(func(_, _, _, idx int) {
			next[idx] = (x0[idx] + a*(x[idx-sx]+x[idx+sx]+x[idx-sy]+x[idx+sy]+x[idx-sz]+x[idx+sz])) / c
		})
		f.interior(func(_, _, _, idx int) {
			x[idx] = next[idx]
		})
		setBoundary(f.Grid, b, x)
	}
}

func (f *Fluid) advect(b int, d, d0, u, v, w dynamo.Field, dt float32) {
	n := float32(f.Grid.N)
	f.interior(func(i, j, k, idx int) {
		x := clamp(float32(i)-dt*u[idx], 0.5, n+0.5)
		y := clamp(float32(j)-dt*v[idx], 0.5, n+0.5)
		z := clamp(float32(k)-dt*w[idx], 0.5, n+0.5)
		d[idx] = f.Grid.Sample(d0, x, y, z)
	})
	setBoundary(f.Grid, b, d)
}

func (f *Fluid) project() {
	s := f.Grid.Side()
	sx, sy, sz := 1, s, s*s

	f.interior(func(_, _, _, idx int) {
		f.div[idx] = -0.5 * (f.U[idx+sx] - f.U[idx-sx] + f.V[idx+sy] - f.V[idx-sy] + f.W[idx+sz] - f.W[idx-sz])
		f.p[idx] = 0
	})
	setBoundary(f.Grid, 0, f.div)
	setBoundary(f.Grid, 0, f.p)
	f.linSolve(0, f.p, f.div, 1, 6)

	f.interior(func(_, _, _, idx int) {
		f.U[idx] -= 0.5 * (f.p[idx+sx] - f.p[idx-sx])
		f.V[idx] -= 0.5 * (f.p[idx+sy] - f.p[idx-sy])
		f.W[idx] -= 0.5 * (f.p[idx+sz] - f.p[idx-sz])
	})
	setBoundary(f.Grid, 1, f.U)
	setBoundary(f.Grid, 2, f.V)
	setBoundary(f.Grid, 3, f.W)
}

// setBoundary mirrors the normal velocity component on walls (b = 1, 2, 3
// for x, y, z) and copies scalars (b = 0).
func setBoundary(g dynamo.Grid, b int, x dynamo.Field) {
	n, s := g.N, g.Side()
	sign := func(axis int) float32 {
		if b == axis {
			return -1
		}
		return 1
	}
	for k := 0; k < s; k++ {
		for j := 0; j < s; j++ {
			x[g.Index(0, j, k)] = sign(1) * x[g.Index(1, j, k)]
			x[g.Index(n+1, j, k)] = sign(1) * x[g.Index(n, j, k)]
		}
	}
	for k := 0; k < s; k++ {
		for i := 0; i < s; i++ {
			x[g.Index(i, 0, k)] = sign(2) * x[g.Index(i, 1, k)]
			x[g.Index(i, n+1, k)] = sign(2) * x[g.Index(i, n, k)]
		}
	}
	for j := 0; j < s; j++ {
		for i := 0; i < s; i++ {
			x[g.Index(i, j, 0)] = sign(3) * x[g.Index(i, j, 1)]
			x[g.Index(i, j, n+1)] = sign(3) * x[g.Index(i, j, n)]
		}
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
