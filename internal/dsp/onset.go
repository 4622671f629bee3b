package dsp

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// OnsetConfig tunes the energy onset detector
type OnsetConfig struct {
	HopSize    int           `yaml:"hop_size"`   // Samples per energy block
	Ratio      float64       `yaml:"ratio"`      // Block RMS over running average that counts as an onset
	Floor      float64       `yaml:"floor"`      // Minimum block RMS
	Refractory time.Duration `yaml:"refractory"` // Minimum spacing between onsets
	Smoothing  float64       `yaml:"smoothing"`  // Running average coefficient (0-1)
}

// DefaultOnsetConfig returns settings suited to claps and pick attacks
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		HopSize:    256,
		Ratio:      3.0,
		Floor:      0.02,
		Refractory: 80 * time.Millisecond,
		Smoothing:  0.1,
	}
}

// OnsetDetector finds transient onsets in a stream of frames by comparing
// short-block RMS energy against its own running average.
type OnsetDetector struct {
	cfg     OnsetConfig
	average float64
	last    time.Duration
	primed  bool
}

// NewOnsetDetector creates an onset detector
func NewOnsetDetector(cfg OnsetConfig) *OnsetDetector {
	if cfg.HopSize < 1 {
		cfg.HopSize = DefaultOnsetConfig().HopSize
	}
	cfg.Smoothing = math.Min(math.Max(cfg.Smoothing, 0), 1)
	return &OnsetDetector{cfg: cfg, last: -cfg.Refractory}
}

// Process scans frame, whose first sample sits at stream time start, and
// returns the times of any onsets found in it.
func (d *OnsetDetector) Process(frame []float64, sampleRate float64, start time.Duration) []time.Duration {
	if sampleRate <= 0 {
		return nil
	}

	var onsets []time.Duration
	for off := 0; off < len(frame); off += d.cfg.HopSize {
		block := frame[off:min(off+d.cfg.HopSize, len(frame))]
		rms := math.Sqrt(floats.Dot(block, block) / float64(len(block)))
		at := start + time.Duration(float64(off)/sampleRate*float64(time.Second))

		if d.primed && rms > d.cfg.Floor && rms > d.average*d.cfg.Ratio && at-d.last >= d.cfg.Refractory {
			onsets = append(onsets, at)
			d.last = at
		}

		if !d.primed {
			d.average = rms
			d.primed = true
		} else {
			d.average += d.cfg.Smoothing * (rms - d.average)
		}
	}
	return onsets
}

// Reset forgets the running average and the last onset
func (d *OnsetDetector) Reset() {
	d.average = 0
	d.primed = false
	d.last = -d.cfg.Refractory
}
