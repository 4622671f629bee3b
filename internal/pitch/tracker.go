package pitch

import (
	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/dsp"
	"github.com/0xlemi/tunelab/internal/logging"
	"github.com/0xlemi/tunelab/internal/spectrum"
)

// Tracker is the monophonic pipeline: conditioning, MPM detection and stream stabilization
type Tracker struct {
	Conditioner *dsp.Conditioner
	Detector    Detector
	Stream      *StreamProcessor

	log     logging.Logger
	samples []float64
	locked  bool
}

// NewTracker wires a monophonic pipeline
func NewTracker(cond dsp.ConditionerConfig, cutoff float64, stream StreamConfig, log logging.Logger) *Tracker {
	return &Tracker{
		Conditioner: dsp.NewConditioner(cond),
		Detector:    NewMPMDetector(cutoff),
		Stream:      NewStreamProcessor(stream),
		log:         logging.OrNoOp(log).WithFields(logging.Fields{"component": "tracker"}),
	}
}

// Process analyzes one frame. buf is only read.
func (t *Tracker) Process(buf *audio.AudioBuffer) Event {
	t.samples = buf.Float64(t.samples)
	frame, rate := t.Conditioner.Filter(t.samples, float64(buf.SampleRate))
	ev := t.Stream.Push(t.Detector.Detect(frame, rate), buf.Time)

	if ev.Locked != t.locked {
		t.locked = ev.Locked
		if ev.Locked {
			t.log.Debug("note locked", logging.Fields{"note": ev.Note.String(), "hz": ev.Frequency, "clarity": ev.Clarity})
		} else {
			t.log.Debug("note released", logging.Fields{"clarity": ev.Clarity})
		}
	}
	return ev
}

// ChordTracker is the polyphonic pipeline: spectrum then peak-picking detection
type ChordTracker struct {
	Analyzer *spectrum.Analyzer
	Detector *PolyDetector

	samples []float64
}

// NewChordTracker wires a polyphonic pipeline with the given FFT size
func NewChordTracker(fftSize int, smoothing float64, cfg PolyConfig, tuning Tuning) *ChordTracker {
	return &ChordTracker{
		Analyzer: spectrum.NewAnalyzer(fftSize, smoothing),
		Detector: NewPolyDetector(cfg, tuning),
	}
}

// Process analyzes one frame and returns the stable notes
func (c *ChordTracker) Process(buf *audio.AudioBuffer) []string {
	c.samples = buf.Float64(c.samples)
	return c.Detector.Detect(c.Analyzer.Compute(c.samples), float64(buf.SampleRate))
}
