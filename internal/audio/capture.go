package audio

import (
	"errors"
	"math"
	"time"
)

// Errors
var (
	ErrAlreadyCapturing = errors.New("audio capture already started")
	ErrNotCapturing     = errors.New("audio capture not started")
	ErrNoFrame          = errors.New("no audio frame available yet")
)

// AudioBuffer represents one mono analysis frame
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
	Time       time.Duration // Stream time of the first sample
}

// Float64 converts the samples into dst, growing it if needed, and returns it.
// The buffer itself is left untouched.
func (b *AudioBuffer) Float64(dst []float64) []float64 {
	if cap(dst) < len(b.Samples) {
		dst = make([]float64, len(b.Samples))
	}
	dst = dst[:len(b.Samples)]
	for i, s := range b.Samples {
		dst[i] = float64(s)
	}
	return dst
}

// Duration returns the span of audio covered by the buffer
func (b *AudioBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Capturer defines the interface for audio capture
type Capturer interface {
	// Start begins audio capture
	Start() error

	// Stop ends audio capture
	Stop() error

	// GetBuffer returns the most recent audio frame
	GetBuffer() (*AudioBuffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// Level calculates the RMS and dB level of a buffer
func Level(buffer *AudioBuffer) (rms, db float64) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return 0, -100
	}

	sumSquares := 0.0
	for _, sample := range buffer.Samples {
		sumSquares += float64(sample) * float64(sample)
	}
	rms = math.Sqrt(sumSquares / float64(len(buffer.Samples)))

	// Protect against log(0)
	if rms > 0.0000001 {
		db = 20 * math.Log10(rms)
	} else {
		db = -100
	}
	return rms, db
}
