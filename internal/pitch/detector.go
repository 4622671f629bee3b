package pitch

import (
	"fmt"
	"math"
)

// Estimate is the result of analysing one frame
type Estimate struct {
	Frequency float64 // Hz, 0 when no periodic signal was found
	Clarity   float64 // Peak strength at the chosen lag (0.0-1.0)
}

// HasPitch reports whether a periodic signal was found
func (e Estimate) HasPitch() bool {
	return e.Frequency > 0
}

// Detector defines the interface for monophonic pitch detection
type Detector interface {
	// Detect analyzes a frame and returns its pitch estimate
	Detect(frame []float64, sampleRate float64) Estimate
}

// Note represents a musical note
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	MIDI      int     // MIDI note number, 69 for A4 at standard tuning
	Frequency float64 // Frequency in Hz
	Cents     float64 // Cents deviation from perfect pitch (-50 to +50), one decimal
}

// String returns the scientific pitch name, e.g. "C#4"
func (n Note) String() string {
	if n.Name == "" {
		return "--"
	}
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Tuning maps frequencies to note names
type Tuning struct {
	ConcertA  float64 `yaml:"concert_a"` // Reference pitch for A4 in Hz
	Transpose int     `yaml:"transpose"` // Semitones added to every note name
}

// StandardTuning is A4 = 440Hz, concert pitch
var StandardTuning = Tuning{ConcertA: 440}

// Clamp replaces an unusable reference pitch with 440Hz
func (t Tuning) Clamp() Tuning {
	if !(t.ConcertA > 0) || math.IsInf(t.ConcertA, 0) {
		t.ConcertA = 440
	}
	return t
}

// Note converts a frequency to the nearest equal-tempered note
func (t Tuning) Note(frequency float64) Note {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return Note{}
	}
	t = t.Clamp()

	// Calibrate against the reference, then work from A4 = 440Hz
	calibrated := frequency * (440 / t.ConcertA)
	semitones := 12 * math.Log2(calibrated/440.0)
	rounded := math.Round(semitones)

	reference := 440.0 * math.Pow(2, rounded/12)
	cents := math.Round(1200*math.Log2(calibrated/reference)*10) / 10

	midi := 69 + int(rounded) + t.Transpose
	noteIndex := ((midi % 12) + 12) % 12

	// Floor division keeps negative MIDI numbers in the right octave
	octave := int(math.Floor(float64(midi)/12)) - 1

	return Note{
		Name:      noteNames[noteIndex],
		Octave:    octave,
		MIDI:      midi,
		Frequency: frequency,
		Cents:     cents,
	}
}

// MIDIFrequency returns the frequency of a MIDI note under this tuning, ignoring transposition
func (t Tuning) MIDIFrequency(midi int) float64 {
	t = t.Clamp()
	return t.ConcertA * math.Pow(2, float64(midi-69)/12)
}
