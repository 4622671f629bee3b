package dsp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionerPassthrough(t *testing.T) {
	c := NewConditioner(ConditionerConfig{Downsample: 0})
	frame := []float64{1, 2, 3}

	out, rate := c.Filter(frame, 44100)
	assert.Equal(t, 44100.0, rate)
	assert.Equal(t, frame, out)
	assert.Equal(t, 1, c.Downsample())
}

func TestConditionerDecimates(t *testing.T) {
	c := NewConditioner(ConditionerConfig{Downsample: 3})
	frame := []float64{0, 1, 2, 3, 4, 5, 6}

	out, rate := c.Filter(frame, 48000)
	assert.Equal(t, []float64{0, 3, 6}, out)
	assert.Equal(t, 16000.0, rate)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6}, frame, "input must not be modified")
}

func TestConditionerLowPassCarriesState(t *testing.T) {
	c := NewConditioner(ConditionerConfig{LowPass: true})

	out, _ := c.Filter([]float64{1}, 44100)
	assert.InDelta(t, Alpha, out[0], 1e-12)

	out, _ = c.Filter([]float64{1}, 44100)
	assert.InDelta(t, Alpha+Alpha*(1-Alpha), out[0], 1e-12)

	c.SetLowPass(false)
	c.SetLowPass(true)
	out, _ = c.Filter([]float64{1}, 44100)
	assert.InDelta(t, Alpha, out[0], 1e-12, "disabling resets the filter")
}

func TestConditionerLowPassConvergesOnDC(t *testing.T) {
	c := NewConditioner(ConditionerConfig{LowPass: true, Downsample: 2})
	frame := make([]float64, 400)
	for i := range frame {
		frame[i] = 0.5
	}

	out, rate := c.Filter(frame, 44100)
	require.Len(t, out, 200)
	assert.Equal(t, 22050.0, rate)
	assert.InDelta(t, 0.5, out[len(out)-1], 1e-6)
}

func TestOnsetDetectorFindsClick(t *testing.T) {
	d := NewOnsetDetector(DefaultOnsetConfig())
	sr := 8000.0

	quiet := make([]float64, 1024)
	for i := range quiet {
		quiet[i] = 0.005
	}
	assert.Empty(t, d.Process(quiet, sr, 0))

	frame := make([]float64, 1024)
	copy(frame, quiet)
	for i := 512; i < 768; i++ {
		frame[i] = 0.8
	}
	start := 128 * time.Millisecond
	onsets := d.Process(frame, sr, start)
	require.Len(t, onsets, 1)
	assert.Equal(t, start+64*time.Millisecond, onsets[0])
}

func TestOnsetDetectorRefractory(t *testing.T) {
	cfg := DefaultOnsetConfig()
	cfg.Refractory = time.Second
	d := NewOnsetDetector(cfg)
	sr := 8000.0

	frame := make([]float64, 2048)
	for i := range frame {
		frame[i] = 0.001
	}
	for i := 512; i < 768; i++ {
		frame[i] = 0.8
	}
	for i := 1536; i < 1792; i++ {
		frame[i] = 0.8
	}

	onsets := d.Process(frame, sr, 0)
	assert.Len(t, onsets, 1)
}
