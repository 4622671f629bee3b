// Package rhythm schedules metronome pulses a short lookahead ahead of the audio clock.
package rhythm

import (
	"math"
	"time"
)

// Tempo and lane limits
const (
	MinTempo           = 40.0
	MaxTempo           = 300.0
	MaxSubdivision     = 4
	MaxPolySubdivision = 16
	BeatsPerBar        = 4
)

// Accent is the voice level of a pulse
type Accent int

// Accent levels. Poly is the fixed voice of the polyrhythm lane.
const (
	Muted Accent = iota
	Weak
	Normal
	Strong
	Poly
)

// String returns the accent name
func (a Accent) String() string {
	switch a {
	case Muted:
		return "muted"
	case Weak:
		return "weak"
	case Normal:
		return "normal"
	case Strong:
		return "strong"
	case Poly:
		return "poly"
	default:
		return "unknown"
	}
}

// Config holds every runtime setting of the scheduler
type Config struct {
	Tempo           float64 `yaml:"tempo"`            // Beats per minute
	Subdivision     int     `yaml:"subdivision"`      // Main pulses per beat
	PolySubdivision int     `yaml:"poly_subdivision"` // Poly pulses per 4-beat bar, 0 disables the lane
	MuteProbability float64 `yaml:"mute_probability"` // Chance of silencing a non-downbeat pulse

	StealthEnabled bool `yaml:"stealth"`
	StealthBarsOn  int  `yaml:"stealth_bars_on"`
	StealthBarsOff int  `yaml:"stealth_bars_off"`

	ProgressionIncrement    float64 `yaml:"progression_increment"`     // BPM added per step, may be negative
	ProgressionIntervalBars int     `yaml:"progression_interval_bars"` // 0 disables progression
	ProgressionGoal         float64 `yaml:"progression_goal"`

	AccentPattern []Accent `yaml:"accent_pattern"` // Indexed by pulse number; empty uses bar/beat accents

	LookaheadInterval time.Duration `yaml:"lookahead_interval"` // 0 means the host calls Tick
	ScheduleAhead     time.Duration `yaml:"schedule_ahead"`
}

// DefaultConfig returns a plain 120 BPM quarter-note click
func DefaultConfig() Config {
	return Config{
		Tempo:             120,
		Subdivision:       1,
		StealthBarsOn:     2,
		StealthBarsOff:    2,
		ProgressionGoal:   MaxTempo,
		LookaheadInterval: 25 * time.Millisecond,
		ScheduleAhead:     100 * time.Millisecond,
	}
}

// Clamp forces every field into its valid range
func (c Config) Clamp() Config {
	c.Tempo = clampTempo(c.Tempo)
	c.Subdivision = min(max(c.Subdivision, 1), MaxSubdivision)
	c.PolySubdivision = min(max(c.PolySubdivision, 0), MaxPolySubdivision)
	c.MuteProbability = clampProbability(c.MuteProbability)
	c.StealthBarsOn = max(c.StealthBarsOn, 1)
	c.StealthBarsOff = max(c.StealthBarsOff, 1)
	if math.IsNaN(c.ProgressionIncrement) || math.IsInf(c.ProgressionIncrement, 0) {
		c.ProgressionIncrement = 0
	}
	c.ProgressionIntervalBars = max(c.ProgressionIntervalBars, 0)
	c.ProgressionGoal = clampTempo(c.ProgressionGoal)
	c.AccentPattern = clampPattern(c.AccentPattern)
	c.LookaheadInterval = max(c.LookaheadInterval, 0)
	if c.ScheduleAhead <= 0 {
		c.ScheduleAhead = 100 * time.Millisecond
	}
	return c
}

func clampTempo(bpm float64) float64 {
	if math.IsNaN(bpm) {
		return MinTempo
	}
	return math.Min(math.Max(bpm, MinTempo), MaxTempo)
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(math.Max(p, 0), 1)
}

// clampPattern returns a copy with every level in [Muted, Strong]
func clampPattern(pattern []Accent) []Accent {
	if len(pattern) == 0 {
		return nil
	}
	out := make([]Accent, len(pattern))
	for i, a := range pattern {
		out[i] = min(max(a, Muted), Strong)
	}
	return out
}
