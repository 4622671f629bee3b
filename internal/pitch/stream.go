package pitch

import (
	"math"
	"time"
)

// StreamConfig tunes smoothing and note-lock of the pitch stream
type StreamConfig struct {
	MedianSize       int           `yaml:"median_size"`       // Recent estimates the median is taken over
	GracePeriod      int           `yaml:"grace_period"`      // Unpitched frames held through before the signal counts as lost
	StartThreshold   float64       `yaml:"start_threshold"`   // Clarity needed to lock onto a new note
	SustainThreshold float64       `yaml:"sustain_threshold"` // Clarity needed to keep a locked note
	HistoryWindow    time.Duration `yaml:"history_window"`    // Span of cents history kept for display
	Tuning           Tuning        `yaml:"tuning"`
}

// DefaultStreamConfig returns the default stream settings
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MedianSize:       5,
		GracePeriod:      10,
		StartThreshold:   0.9,
		SustainThreshold: 0.8,
		HistoryWindow:    5 * time.Second,
		Tuning:           StandardTuning,
	}
}

// Clamp forces every field into its valid range
func (c StreamConfig) Clamp() StreamConfig {
	c.MedianSize = max(c.MedianSize, 1)
	c.GracePeriod = max(c.GracePeriod, 0)
	c.StartThreshold = clamp01(c.StartThreshold)
	c.SustainThreshold = min(clamp01(c.SustainThreshold), c.StartThreshold)
	c.HistoryWindow = max(c.HistoryWindow, 0)
	c.Tuning = c.Tuning.Clamp()
	return c
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}

// Event is the stabilized output for one frame
type Event struct {
	Frequency float64 // Median-smoothed frequency in Hz, 0 when nothing is reported
	Clarity   float64 // Clarity of this frame's raw estimate
	Locked    bool    // A note is locked; true whenever Frequency is set
	Held      bool    // Frequency is held through a dropout rather than measured this frame
	Note      Note    // Zero when Frequency is 0
	Time      time.Duration
}

// HistorySample is one point of the rolling cents history
type HistorySample struct {
	At    time.Duration
	Cents float64
}

// StreamProcessor turns per-frame estimates into a steady note display. It
// applies a median over recent frequencies, holds the last value through short
// dropouts, and locks notes with hysteresis: a stricter clarity to start a
// note than to keep it.
type StreamProcessor struct {
	cfg        StreamConfig
	median     *MedianBuffer[float64]
	locked     bool
	lastMedian float64
	nullStreak int
	history    []HistorySample
}

// NewStreamProcessor creates a stream processor
func NewStreamProcessor(cfg StreamConfig) *StreamProcessor {
	cfg = cfg.Clamp()
	return &StreamProcessor{
		cfg:    cfg,
		median: NewMedianBuffer[float64](cfg.MedianSize),
	}
}

// Config returns the active configuration
func (p *StreamProcessor) Config() StreamConfig { return p.cfg }

// SetTuning changes concert pitch and transposition
func (p *StreamProcessor) SetTuning(t Tuning) {
	p.cfg.Tuning = t.Clamp()
}

// SetThresholds changes the start and sustain clarity thresholds
func (p *StreamProcessor) SetThresholds(start, sustain float64) {
	p.cfg.StartThreshold = start
	p.cfg.SustainThreshold = sustain
	p.cfg = p.cfg.Clamp()
}

// Locked reports whether a note is currently locked
func (p *StreamProcessor) Locked() bool { return p.locked }

// Push feeds the estimate of the frame at stream time at and returns the stabilized event
func (p *StreamProcessor) Push(est Estimate, at time.Duration) Event {
	clarity := clamp01(est.Clarity)
	ev := Event{Clarity: clarity, Time: at}

	gate := p.cfg.StartThreshold
	if p.locked {
		gate = p.cfg.SustainThreshold
	}

	switch {
	case est.HasPitch() && !math.IsInf(est.Frequency, 0) && clarity > gate:
		p.nullStreak = 0
		p.median.Push(est.Frequency)
		p.lastMedian = p.median.Median()
		p.locked = true
		ev.Frequency = p.lastMedian

	case !est.HasPitch() && p.locked && p.nullStreak < p.cfg.GracePeriod:
		// Brief dropout: keep showing the note
		p.nullStreak++
		ev.Frequency = p.lastMedian
		ev.Held = true

	default:
		// Lost, or present but not clear enough for the current lock state
		p.nullStreak++
		p.locked = false
		if p.nullStreak > p.cfg.GracePeriod {
			p.median.Clear()
			p.lastMedian = 0
		}
	}

	if ev.Frequency > 0 {
		ev.Locked = true
		ev.Note = p.cfg.Tuning.Note(ev.Frequency)
		p.history = append(p.history, HistorySample{At: at, Cents: ev.Note.Cents})
	}
	p.pruneHistory(at)
	return ev
}

func (p *StreamProcessor) pruneHistory(now time.Duration) {
	cut := 0
	for cut < len(p.history) && now-p.history[cut].At > p.cfg.HistoryWindow {
		cut++
	}
	if cut > 0 {
		p.history = append(p.history[:0], p.history[cut:]...)
	}
}

// History returns a copy of the cents history within the window
func (p *StreamProcessor) History() []HistorySample {
	out := make([]HistorySample, len(p.history))
	copy(out, p.history)
	return out
}

// Reset drops all state
func (p *StreamProcessor) Reset() {
	p.median.Clear()
	p.locked = false
	p.lastMedian = 0
	p.nullStreak = 0
	p.history = p.history[:0]
}
