// Package spectrum turns time-domain frames into magnitude spectra in decibels.
package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// MinDecibels is the floor reported for silent bins
	MinDecibels = -100.0

	// DefaultSmoothing averages each bin with its previous value, like an analyser node
	DefaultSmoothing = 0.5
)

// Analyzer computes Hann-windowed FFT magnitude spectra of a fixed size.
// The result has size/2 bins, bin k centred on k*sampleRate/size Hz.
type Analyzer struct {
	size      int
	smoothing float64
	window    []float64
	norm      float64
	input     []float64
	prev      []float64
	out       []float64
}

// NewAnalyzer creates an analyzer for frames of the given size
func NewAnalyzer(size int, smoothing float64) *Analyzer {
	if size < 2 {
		size = 2
	}
	w := window.Hann(size)

	// Scale so a full-scale sine reads 0 dB
	sum := 0.0
	for _, v := range w {
		sum += v
	}

	return &Analyzer{
		size:      size,
		smoothing: math.Min(math.Max(smoothing, 0), 0.99),
		window:    w,
		norm:      sum / 2,
		input:     make([]float64, size),
		prev:      make([]float64, size/2),
		out:       make([]float64, size/2),
	}
}

// Size returns the FFT size
func (a *Analyzer) Size() int { return a.size }

// Bins returns the number of bins in each spectrum
func (a *Analyzer) Bins() int { return a.size / 2 }

// Compute returns the dB magnitude spectrum of frame. Shorter frames are zero
// padded, longer ones truncated to the most recent samples. The returned slice
// is reused by the next call.
func (a *Analyzer) Compute(frame []float64) []float64 {
	clear(a.input)
	if len(frame) > a.size {
		frame = frame[len(frame)-a.size:]
	}
	for i, s := range frame {
		a.input[i] = s * a.window[i]
	}

	spectrum := fft.FFTReal(a.input)

	for k := range a.out {
		mag := cmplx.Abs(spectrum[k]) / a.norm
		mag = a.smoothing*a.prev[k] + (1-a.smoothing)*mag
		a.prev[k] = mag

		db := MinDecibels
		if mag > 0 {
			db = math.Max(20*math.Log10(mag), MinDecibels)
		}
		a.out[k] = db
	}
	return a.out
}

// Reset clears the smoothing history
func (a *Analyzer) Reset() {
	clear(a.prev)
}

// BinFrequency returns the centre frequency of bin k
func BinFrequency(k float64, bins int, sampleRate float64) float64 {
	if bins <= 0 {
		return 0
	}
	return k * sampleRate / float64(2*bins)
}
