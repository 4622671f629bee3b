package pitch

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameStep = 46 * time.Millisecond

func TestStreamConstantInputIsStable(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	for i := range 20 {
		ev := p.Push(Estimate{Frequency: 440, Clarity: 0.97}, time.Duration(i)*frameStep)
		require.True(t, ev.Locked)
		assert.Equal(t, 440.0, ev.Frequency)
		assert.Equal(t, "A4", ev.Note.String())
		assert.False(t, ev.Held)
	}
}

func TestStreamMedianSuppressesOutlier(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	for _, f := range []float64{440, 441, 439} {
		p.Push(Estimate{Frequency: f, Clarity: 0.95}, 0)
	}
	ev := p.Push(Estimate{Frequency: 880, Clarity: 0.95}, 0)
	assert.InDelta(t, 440.5, ev.Frequency, 1e-9)
	assert.Equal(t, "A4", ev.Note.String())
}

func TestStreamHysteresis(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())

	// Below the start threshold never locks
	ev := p.Push(Estimate{Frequency: 440, Clarity: 0.85}, 0)
	assert.False(t, ev.Locked)
	assert.Zero(t, ev.Frequency)

	ev = p.Push(Estimate{Frequency: 440, Clarity: 0.95}, frameStep)
	assert.True(t, ev.Locked)

	// Between sustain and start keeps the lock
	ev = p.Push(Estimate{Frequency: 440, Clarity: 0.85}, 2*frameStep)
	assert.True(t, ev.Locked)
	assert.Equal(t, 440.0, ev.Frequency)

	// Below sustain releases it
	ev = p.Push(Estimate{Frequency: 440, Clarity: 0.7}, 3*frameStep)
	assert.False(t, ev.Locked)
	assert.Zero(t, ev.Frequency)
	assert.False(t, p.Locked())
}

func TestStreamGracePeriodHoldsThenClears(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	p.Push(Estimate{Frequency: 440, Clarity: 0.95}, 0)

	for i := range 10 {
		ev := p.Push(Estimate{}, time.Duration(i+1)*frameStep)
		require.True(t, ev.Held, "frame %d", i)
		assert.Equal(t, 440.0, ev.Frequency)
	}

	ev := p.Push(Estimate{}, 11*frameStep)
	assert.False(t, ev.Locked)
	assert.Zero(t, ev.Frequency)

	// Nothing from before the dropout leaks into the new note
	ev = p.Push(Estimate{Frequency: 220, Clarity: 0.95}, 12*frameStep)
	assert.Equal(t, 220.0, ev.Frequency)
}

func TestStreamShortDropoutKeepsMedian(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	p.Push(Estimate{Frequency: 440, Clarity: 0.95}, 0)
	p.Push(Estimate{}, frameStep)
	p.Push(Estimate{}, 2*frameStep)

	ev := p.Push(Estimate{Frequency: 442, Clarity: 0.95}, 3*frameStep)
	assert.InDelta(t, 441.0, ev.Frequency, 1e-9)
}

func TestStreamHistoryWindow(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	p.Push(Estimate{Frequency: 440, Clarity: 0.95}, 0)
	p.Push(Estimate{Frequency: 440, Clarity: 0.95}, 3*time.Second)
	p.Push(Estimate{Frequency: 440, Clarity: 0.95}, 6*time.Second)

	h := p.History()
	require.Len(t, h, 2)
	assert.Equal(t, 3*time.Second, h[0].At)

	p.Reset()
	assert.Empty(t, p.History())
	assert.False(t, p.Locked())
}

func TestStreamTuning(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	p.SetTuning(Tuning{ConcertA: 440, Transpose: 2})

	ev := p.Push(Estimate{Frequency: 466.16, Clarity: 0.95}, 0)
	assert.Equal(t, "C5", ev.Note.String())
}

func TestStreamMalformedEstimates(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())

	ev := p.Push(Estimate{Frequency: 440, Clarity: math.NaN()}, 0)
	assert.False(t, ev.Locked)
	assert.Zero(t, ev.Clarity)

	ev = p.Push(Estimate{Frequency: math.Inf(1), Clarity: 1}, 0)
	assert.False(t, ev.Locked)
}

func TestStreamThresholdClamp(t *testing.T) {
	p := NewStreamProcessor(DefaultStreamConfig())
	p.SetThresholds(1.5, 0.95)

	cfg := p.Config()
	assert.Equal(t, 1.0, cfg.StartThreshold)
	assert.Equal(t, 0.95, cfg.SustainThreshold)

	p.SetThresholds(0.5, 0.9)
	assert.Equal(t, 0.5, p.Config().SustainThreshold, "sustain never exceeds start")
}
