// Package dynamo provides the grid primitives shared by the fluid solver,
// the recording format and the renderer.
//
// The package defines:
//
//   - [Grid]: a cubic cell grid of interior size N with a one-cell border
//   - [Field]: a flat float32 scalar field addressed through a [Grid]
//   - [ParallelFor]: chunked parallel loops used by the solver sweeps
//   - [TrigTable]: precomputed sin/cos lookup used by source patterns
//
// # Layout
//
// Cells are stored x fastest, then y, then z. A grid of size N holds
// (N+2)^3 cells; index 0 and N+1 on every axis are boundary cells.
//
//	g := dynamo.NewGrid(64)
//	d := g.NewField()
//	d[g.Index(60, 50, 28)] = 1
//
// # Thread Safety
//
// Fields are plain slices. Nothing in this package synchronises access;
// callers hand fields between goroutines through the signal package.
package dynamo
