// Package physics holds the smoke solver driven by the simulation worker.
//
//   - [Fluid]: stable-fluids solver with buoyancy and vorticity confinement
//   - [Pattern]: procedural source injected into a [Patch] every step
//
// # Determinism
//
// [RandParams] seeds the pattern once at startup; [Pattern.Value] is a pure
// function of (i, j, t) for a fixed parameter vector, so identical time
// sequences reproduce identical injections:
//
//	pat := physics.NewPattern(physics.RandParams(256, seed))
//	pat.Inject(fluid, physics.Patch{X: 60, Y: 50, Z: 28, Size: 8, Velocity: -3}, t)
//	fluid.Step(0.1)
package physics
