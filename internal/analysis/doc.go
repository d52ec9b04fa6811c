// Package analysis summarises recordings frame by frame.
//
// A recording is reduced to per-frame series:
//
//   - [Scan]: total mass, peak density and filled cells of every frame
//   - [PowerSpectrum]: one-sided power of a series, mean removed and Hann windowed
//   - [Dominant]: the strongest non-zero frequency of a series
//
// Frequencies are in cycles per unit of simulated time when the frame
// spacing dt is the solver time step:
//
//	rep, _ := analysis.Scan(r)
//	f, _ := analysis.Dominant(rep.Mass, dt)
package analysis
