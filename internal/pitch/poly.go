package pitch

import (
	"math"
	"slices"
	"sort"

	"github.com/0xlemi/tunelab/internal/spectrum"
)

// PolyConfig tunes polyphonic note detection
type PolyConfig struct {
	AbsoluteThresholdDB float64 `yaml:"absolute_threshold_db"` // Minimum peak level
	RelativeThresholdDB float64 `yaml:"relative_threshold_db"` // Maximum distance below the strongest peak
	MaxNotes            int     `yaml:"max_notes"`
	MinFrequency        float64 `yaml:"min_frequency"`      // Bins below this are DC and rumble
	HarmonicTolerance   float64 `yaml:"harmonic_tolerance"` // Allowed distance of a ratio from a whole number
	HistoryWindow       int     `yaml:"history_window"`     // Persistence counter cap
	StableThreshold     int     `yaml:"stable_threshold"`   // Counter value at which a note is reported
}

// DefaultPolyConfig returns the tuned defaults for guitar chords
func DefaultPolyConfig() PolyConfig {
	return PolyConfig{
		AbsoluteThresholdDB: -60,
		RelativeThresholdDB: 25,
		MaxNotes:            6,
		MinFrequency:        40,
		HarmonicTolerance:   0.03,
		HistoryWindow:       5,
		StableThreshold:     3,
	}
}

// Clamp replaces out-of-range values with usable ones
func (c PolyConfig) Clamp() PolyConfig {
	d := DefaultPolyConfig()
	if c.RelativeThresholdDB <= 0 {
		c.RelativeThresholdDB = d.RelativeThresholdDB
	}
	if c.MaxNotes < 1 {
		c.MaxNotes = d.MaxNotes
	}
	c.MinFrequency = math.Max(c.MinFrequency, 0)
	if c.HarmonicTolerance <= 0 || c.HarmonicTolerance >= 0.5 {
		c.HarmonicTolerance = d.HarmonicTolerance
	}
	c.HistoryWindow = max(c.HistoryWindow, 1)
	c.StableThreshold = min(max(c.StableThreshold, 1), c.HistoryWindow)
	return c
}

// Peak represents a peak in the magnitude spectrum
type Peak struct {
	Bin         float64 // Interpolated bin index
	Frequency   float64
	MagnitudeDB float64
}

type noteHistory struct {
	count int
	midi  int
}

// PolyDetector finds simultaneous notes in a dB magnitude spectrum and only
// reports those that persist over several frames.
type PolyDetector struct {
	cfg     PolyConfig
	tuning  Tuning
	history map[string]*noteHistory
	peaks   []Peak
}

// NewPolyDetector creates a polyphonic detector
func NewPolyDetector(cfg PolyConfig, tuning Tuning) *PolyDetector {
	return &PolyDetector{
		cfg:     cfg.Clamp(),
		tuning:  tuning.Clamp(),
		history: make(map[string]*noteHistory),
	}
}

// SetTuning changes the reference pitch and transposition used for note names
func (d *PolyDetector) SetTuning(t Tuning) {
	d.tuning = t.Clamp()
}

// Peaks returns the candidate peaks of spectrumDB, strongest first, after the
// absolute and relative thresholds. spectrumDB holds bins covering 0 to sampleRate/2.
func (d *PolyDetector) Peaks(spectrumDB []float64, sampleRate float64) []Peak {
	d.peaks = d.peaks[:0]
	bins := len(spectrumDB)
	if bins < 3 || !(sampleRate > 0) {
		return d.peaks
	}

	binHz := sampleRate / float64(2*bins)
	start := max(int(math.Ceil(d.cfg.MinFrequency/binHz)), 1)

	for i := start; i < bins-1; i++ {
		val := spectrumDB[i]
		if val > d.cfg.AbsoluteThresholdDB && val > spectrumDB[i-1] && val > spectrumDB[i+1] {
			bin := float64(i) + parabolicOffset(spectrumDB[i-1], val, spectrumDB[i+1])
			d.peaks = append(d.peaks, Peak{
				Bin:         bin,
				Frequency:   spectrum.BinFrequency(bin, bins, sampleRate),
				MagnitudeDB: val,
			})
		}
	}
	if len(d.peaks) == 0 {
		return d.peaks
	}

	sort.SliceStable(d.peaks, func(i, j int) bool {
		return d.peaks[i].MagnitudeDB > d.peaks[j].MagnitudeDB
	})

	// Strum harmonics sit well below the struck fundamentals
	floor := d.peaks[0].MagnitudeDB - d.cfg.RelativeThresholdDB
	keep := d.peaks[:0]
	for _, p := range d.peaks {
		if p.MagnitudeDB >= floor {
			keep = append(keep, p)
		}
	}
	d.peaks = keep
	return d.peaks
}

// Fundamentals walks the peaks strongest first and accepts those that are not
// near-integer multiples (or divisors) of an already accepted fundamental.
func (d *PolyDetector) Fundamentals(peaks []Peak) []Peak {
	var accepted []Peak
	names := make(map[string]bool)

	for _, p := range peaks {
		if len(accepted) >= d.cfg.MaxNotes {
			break
		}
		if !(p.Frequency > 0) || d.isHarmonic(p, accepted) {
			continue
		}
		name := d.tuning.Note(p.Frequency).String()
		if names[name] {
			continue
		}
		names[name] = true
		accepted = append(accepted, p)
	}
	return accepted
}

func (d *PolyDetector) isHarmonic(p Peak, accepted []Peak) bool {
	for _, a := range accepted {
		lo, hi := math.Min(a.Frequency, p.Frequency), math.Max(a.Frequency, p.Frequency)
		ratio := hi / lo
		whole := math.Round(ratio)
		if whole >= 2 && math.Abs(ratio-whole) < d.cfg.HarmonicTolerance {
			return true
		}
	}
	return false
}

// Detect runs one analysis pass and returns the stable note names, lowest first.
// Notes fade out over a few empty passes rather than disappearing at once.
func (d *PolyDetector) Detect(spectrumDB []float64, sampleRate float64) []string {
	seen := make(map[string]int)
	for _, p := range d.Fundamentals(d.Peaks(spectrumDB, sampleRate)) {
		n := d.tuning.Note(p.Frequency)
		seen[n.String()] = n.MIDI
	}

	for name, midi := range seen {
		h, ok := d.history[name]
		if !ok {
			h = &noteHistory{midi: midi}
			d.history[name] = h
		}
		h.count = min(h.count+1, d.cfg.HistoryWindow)
	}
	for name, h := range d.history {
		if _, ok := seen[name]; ok {
			continue
		}
		h.count--
		if h.count <= 0 {
			delete(d.history, name)
		}
	}

	return d.Stable()
}

// Stable returns the notes whose persistence counter has reached the stability threshold
func (d *PolyDetector) Stable() []string {
	type entry struct {
		name string
		midi int
	}
	var stable []entry
	for name, h := range d.history {
		if h.count >= d.cfg.StableThreshold {
			stable = append(stable, entry{name, h.midi})
		}
	}
	slices.SortFunc(stable, func(a, b entry) int { return a.midi - b.midi })

	out := make([]string, len(stable))
	for i, e := range stable {
		out[i] = e.name
	}
	return out
}

// Reset forgets all note history
func (d *PolyDetector) Reset() {
	clear(d.history)
}
