package pitch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultCutoff is the minimum NSDF peak accepted as a period. Higher values
// lock harder onto the fundamental; lower values risk octave errors.
const DefaultCutoff = 0.9

// MPMDetector implements the McLeod Pitch Method.
//
// The normalized square difference function is computed for lags up to half
// the frame, the zero-lag lobe is skipped, and the first positive lobe whose
// maximum reaches the cutoff gives the period. Choosing the first qualifying
// lobe instead of the tallest favours the fundamental over sub-octaves.
//
// Reference: McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
type MPMDetector struct {
	cutoff float64
	nsdf   []float64
}

// NewMPMDetector creates a detector; a cutoff outside (0, 1] falls back to DefaultCutoff
func NewMPMDetector(cutoff float64) *MPMDetector {
	d := &MPMDetector{}
	d.SetCutoff(cutoff)
	return d
}

// SetCutoff changes the peak acceptance cutoff
func (d *MPMDetector) SetCutoff(cutoff float64) {
	if !(cutoff > 0 && cutoff <= 1) {
		cutoff = DefaultCutoff
	}
	d.cutoff = cutoff
}

// Cutoff returns the peak acceptance cutoff
func (d *MPMDetector) Cutoff() float64 { return d.cutoff }

// NSDF returns the function computed by the last Detect call. It is reused by the next call.
func (d *MPMDetector) NSDF() []float64 { return d.nsdf }

// Detect analyzes a frame and returns its pitch estimate. It never panics and
// never returns NaN; silence and aperiodic input yield Estimate{}.
func (d *MPMDetector) Detect(frame []float64, sampleRate float64) Estimate {
	if len(frame) < 4 || !(sampleRate > 0) {
		d.nsdf = d.nsdf[:0]
		return Estimate{}
	}

	d.nsdf = NSDF(frame, d.nsdf)
	peak, ok := pickPeak(d.nsdf, d.cutoff)
	if !ok {
		return Estimate{}
	}

	lag := refineLag(d.nsdf, peak)
	if !(lag > 0) {
		return Estimate{}
	}

	return Estimate{
		Frequency: sampleRate / lag,
		Clarity:   math.Min(math.Max(d.nsdf[peak], 0), 1),
	}
}

// NSDF computes the normalized square difference function of frame for lags
// 0..len(frame)/2 inclusive into dst, growing it if needed.
//
//	nsdf[τ] = 2·Σ x[i]·x[i+τ] / Σ (x[i]² + x[i+τ]²)
//
// over the overlap i < len(frame)-τ. Lags with no energy are 0.
func NSDF(frame []float64, dst []float64) []float64 {
	n := len(frame)
	lags := 0
	if n > 0 {
		lags = n/2 + 1
	}
	if cap(dst) < lags {
		dst = make([]float64, lags)
	}
	dst = dst[:lags]

	// m starts as both overlap energies at lag 0 and sheds one sample from each end per lag
	m := 2 * floats.Dot(frame, frame)
	for tau := range lags {
		if tau > 0 {
			head := frame[tau-1]
			tail := frame[n-tau]
			m -= head*head + tail*tail
		}

		if m <= 0 {
			dst[tau] = 0
			continue
		}
		acf := floats.Dot(frame[:n-tau], frame[tau:])
		dst[tau] = math.Min(math.Max(2*acf/m, -1), 1)
	}
	return dst
}

// pickPeak returns the lag of the first positive-lobe maximum reaching cutoff
func pickPeak(nsdf []float64, cutoff float64) (int, bool) {
	n := len(nsdf)
	if n < 3 {
		return 0, false
	}

	// Skip the zero-lag lobe and the negative run after it
	pos := 0
	for pos < n-1 && nsdf[pos] > 0 {
		pos++
	}
	for pos < n-1 && nsdf[pos] <= 0 {
		pos++
	}
	pos = max(pos, 1)

	best := -1
	for i := pos; i < n-1; i++ {
		if nsdf[i] <= 0 {
			// Lobe closed
			if best >= 0 && nsdf[best] >= cutoff {
				return best, true
			}
			best = -1
			continue
		}
		if nsdf[i] > nsdf[i-1] && nsdf[i] >= nsdf[i+1] {
			if best < 0 || nsdf[i] > nsdf[best] {
				best = i
			}
		}
	}

	// Lobe still open at the end of the range
	if best >= 0 && nsdf[best] >= cutoff {
		return best, true
	}
	return 0, false
}

// refineLag returns the vertex of the parabola through the peak and its neighbours
func refineLag(nsdf []float64, peak int) float64 {
	if peak < 1 || peak >= len(nsdf)-1 {
		return float64(peak)
	}
	return float64(peak) + parabolicOffset(nsdf[peak-1], nsdf[peak], nsdf[peak+1])
}

// parabolicOffset returns the vertex offset from the middle sample, 0 for a flat triple
func parabolicOffset(y1, y2, y3 float64) float64 {
	denom := 2 * (y1 - 2*y2 + y3)
	if denom == 0 {
		return 0
	}
	return (y1 - y3) / denom
}
