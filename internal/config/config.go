// Package config loads tunelab settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0xlemi/tunelab/internal/dsp"
	"github.com/0xlemi/tunelab/internal/logging"
	"github.com/0xlemi/tunelab/internal/pitch"
	"github.com/0xlemi/tunelab/internal/rhythm"
	"github.com/0xlemi/tunelab/internal/spectrum"
)

// Audio holds input device settings
type Audio struct {
	FrameSize     int     `yaml:"frame_size"`
	SampleRate    int     `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	Amplification float32 `yaml:"amplification"`
	Input         string  `yaml:"input"` // WAV file to read instead of the microphone
}

// Pitch holds the monophonic tracker settings
type Pitch struct {
	Cutoff float64            `yaml:"cutoff"`
	Stream pitch.StreamConfig `yaml:"stream"`
}

// Chords holds the polyphonic tracker settings
type Chords struct {
	FFTSize   int              `yaml:"fft_size"`
	Smoothing float64          `yaml:"smoothing"`
	Poly      pitch.PolyConfig `yaml:"poly"`
}

// Config is the full application configuration
type Config struct {
	LogLevel    string                `yaml:"log_level"`
	Audio       Audio                 `yaml:"audio"`
	Conditioner dsp.ConditionerConfig `yaml:"conditioner"`
	Pitch       Pitch                 `yaml:"pitch"`
	Chords      Chords                `yaml:"chords"`
	Rhythm      rhythm.Config         `yaml:"rhythm"`
	Onset       dsp.OnsetConfig       `yaml:"onset"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: Audio{
			FrameSize:     2048,
			SampleRate:    44100,
			Channels:      1,
			Amplification: 1,
		},
		Conditioner: dsp.ConditionerConfig{Downsample: 1},
		Pitch: Pitch{
			Cutoff: pitch.DefaultCutoff,
			Stream: pitch.DefaultStreamConfig(),
		},
		Chords: Chords{
			FFTSize:   4096,
			Smoothing: spectrum.DefaultSmoothing,
			Poly:      pitch.DefaultPolyConfig(),
		},
		Rhythm: rhythm.DefaultConfig(),
		Onset:  dsp.DefaultOnsetConfig(),
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are an error.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg.Clamp(), nil
}

// Clamp brings every value into its valid range
func (c Config) Clamp() Config {
	d := Default()
	if c.Audio.FrameSize < 256 {
		c.Audio.FrameSize = d.Audio.FrameSize
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	c.Audio.Channels = max(c.Audio.Channels, 1)
	if c.Audio.Amplification <= 0 {
		c.Audio.Amplification = d.Audio.Amplification
	}

	c.Conditioner.Downsample = max(c.Conditioner.Downsample, 1)

	if !(c.Pitch.Cutoff > 0 && c.Pitch.Cutoff <= 1) {
		c.Pitch.Cutoff = d.Pitch.Cutoff
	}
	c.Pitch.Stream = c.Pitch.Stream.Clamp()

	if c.Chords.FFTSize < 256 {
		c.Chords.FFTSize = d.Chords.FFTSize
	}
	if c.Chords.Smoothing < 0 || c.Chords.Smoothing >= 1 {
		c.Chords.Smoothing = d.Chords.Smoothing
	}
	c.Chords.Poly = c.Chords.Poly.Clamp()

	c.Rhythm = c.Rhythm.Clamp()
	return c
}
