package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func TestAnalyzerPeakAtSineBin(t *testing.T) {
	const sr = 44100.0
	a := NewAnalyzer(4096, 0)
	require.Equal(t, 2048, a.Bins())

	// Bin-centred frequency so the peak lands on one bin
	k := 40
	freq := BinFrequency(float64(k), a.Bins(), sr)
	mags := a.Compute(sine(freq, sr, 4096))
	require.Len(t, mags, 2048)

	best := 0
	for i := range mags {
		if mags[i] > mags[best] {
			best = i
		}
	}
	assert.Equal(t, k, best)
	assert.InDelta(t, 0, mags[k], 0.5)
}

func TestAnalyzerSilenceHitsFloor(t *testing.T) {
	a := NewAnalyzer(1024, DefaultSmoothing)
	mags := a.Compute(make([]float64, 1024))
	for _, v := range mags {
		assert.Equal(t, MinDecibels, v)
	}
}

func TestAnalyzerSmoothingDecays(t *testing.T) {
	const sr = 8000.0
	a := NewAnalyzer(256, 0.5)
	freq := BinFrequency(16, a.Bins(), sr)

	loud := a.Compute(sine(freq, sr, 256))[16]
	quiet := a.Compute(make([]float64, 256))[16]
	assert.InDelta(t, loud-20*math.Log10(2), quiet, 0.01)

	a.Reset()
	assert.Equal(t, MinDecibels, a.Compute(make([]float64, 256))[16])
}
