package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrShortSeries = errors.New("series too short for a spectrum")

// PowerSpectrum returns |X_k|^2 / n for k = 0..n/2 of the mean-removed,
// Hann-windowed series. Any length works; go-dsp falls back to Bluestein
// for lengths that are not powers of two.
func PowerSpectrum(series []float64) []float64 {
	n := len(series)
	if n < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range series {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}

	spectrum := fft.FFTReal(windowed)
	ps := make([]float64, n/2+1)
	for k := range ps {
		a := cmplx.Abs(spectrum[k])
		ps[k] = a * a / float64(n)
	}
	return ps
}

// Frequency is the frequency of bin k for n samples spaced dt apart.
func Frequency(k, n int, dt float64) float64 {
	return float64(k) / (float64(n) * dt)
}

// Peak is a spectral line.
type Peak struct {
	Bin       int
	Frequency float64
	Power     float64
}

// Dominant finds the strongest bin above DC. A constant series has no
// dominant frequency and yields a zero Peak.
func Dominant(series []float64, dt float64) (Peak, error) {
	if len(series) < 4 {
		return Peak{}, ErrShortSeries
	}
	ps := PowerSpectrum(series)
	var p Peak
	for k := 1; k < len(ps); k++ {
		if ps[k] > p.Power {
			p = Peak{Bin: k, Frequency: Frequency(k, len(series), dt), Power: ps[k]}
		}
	}
	return p, nil
}
