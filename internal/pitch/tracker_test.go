package pitch

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/dsp"
)

// sineBuffers slices one second of a sine into capture-sized frames
func sineBuffers(freq float64, sampleRate, frameSize int) []*audio.AudioBuffer {
	var out []*audio.AudioBuffer
	for start := 0; start+frameSize <= sampleRate; start += frameSize {
		samples := make([]float32, frameSize)
		for i := range samples {
			ti := float64(start+i) / float64(sampleRate)
			samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*ti))
		}
		out = append(out, &audio.AudioBuffer{
			Samples:    samples,
			SampleRate: sampleRate,
			Time:       time.Duration(start) * time.Second / time.Duration(sampleRate),
		})
	}
	return out
}

func TestTrackerLocksMiddleC(t *testing.T) {
	tr := NewTracker(dsp.ConditionerConfig{Downsample: 1}, DefaultCutoff, DefaultStreamConfig(), nil)

	var events []Event
	for _, buf := range sineBuffers(261.63, 44100, 2048) {
		events = append(events, tr.Process(buf))
	}
	require.NotEmpty(t, events)

	first := -1
	for i, ev := range events {
		if ev.Locked {
			first = i
			break
		}
	}
	require.GreaterOrEqual(t, first, 0)
	assert.LessOrEqual(t, first, 1)

	for _, ev := range events[first:] {
		require.True(t, ev.Locked)
		assert.Equal(t, "C4", ev.Note.String())
		assert.InDelta(t, 0, ev.Note.Cents, 5)
	}
}

func TestTrackerWithConditioning(t *testing.T) {
	tr := NewTracker(dsp.ConditionerConfig{LowPass: true, Downsample: 2}, DefaultCutoff, DefaultStreamConfig(), nil)

	var last Event
	for _, buf := range sineBuffers(196, 44100, 2048) {
		last = tr.Process(buf)
	}
	require.True(t, last.Locked)
	assert.Equal(t, "G3", last.Note.String())
	assert.InDelta(t, 0, last.Note.Cents, 5)
}

func TestChordTrackerSilence(t *testing.T) {
	ct := NewChordTracker(4096, 0.5, DefaultPolyConfig(), StandardTuning)
	buf := &audio.AudioBuffer{Samples: make([]float32, 4096), SampleRate: 44100}
	for range 5 {
		assert.Empty(t, ct.Process(buf))
	}
}
