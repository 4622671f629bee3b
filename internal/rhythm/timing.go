package rhythm

import (
	"time"
)

// Rating grades how close an onset landed to a beat
type Rating int

// Ratings
const (
	Perfect Rating = iota
	Good
	Off
)

// Rating windows
const (
	PerfectWindow = 30 * time.Millisecond
	GoodWindow    = 70 * time.Millisecond
)

// String returns the rating name
func (r Rating) String() string {
	switch r {
	case Perfect:
		return "perfect"
	case Good:
		return "good"
	default:
		return "off"
	}
}

// Judgement is the result of matching one onset against the recorded beats
type Judgement struct {
	Offset    time.Duration // Onset minus nearest beat; negative when early
	Rating    Rating
	MeanError time.Duration // Running mean absolute offset
	Count     int           // Onsets judged so far
}

// TimingAnalyzer matches played onsets against scheduled main-lane beats
type TimingAnalyzer struct {
	beats    []time.Duration
	size     int
	totalAbs time.Duration
	count    int
}

// NewTimingAnalyzer keeps at most size recent beats (minimum 1)
func NewTimingAnalyzer(size int) *TimingAnalyzer {
	size = max(size, 1)
	return &TimingAnalyzer{
		beats: make([]time.Duration, 0, size),
		size:  size,
	}
}

// Record stores a beat time. Poly-lane beats are ignored.
func (a *TimingAnalyzer) Record(b Beat) {
	if b.IsPolyLane {
		return
	}
	if len(a.beats) == a.size {
		copy(a.beats, a.beats[1:])
		a.beats = a.beats[:a.size-1]
	}
	a.beats = append(a.beats, b.Time)
}

// Evaluate judges an onset against the nearest recorded beat.
// It returns false when no beat has been recorded yet.
func (a *TimingAnalyzer) Evaluate(onset time.Duration) (Judgement, bool) {
	if len(a.beats) == 0 {
		return Judgement{}, false
	}

	offset := onset - a.beats[0]
	for _, t := range a.beats[1:] {
		if d := onset - t; abs(d) < abs(offset) {
			offset = d
		}
	}

	a.totalAbs += abs(offset)
	a.count++

	j := Judgement{
		Offset:    offset,
		Rating:    Off,
		MeanError: a.totalAbs / time.Duration(a.count),
		Count:     a.count,
	}
	switch {
	case abs(offset) <= PerfectWindow:
		j.Rating = Perfect
	case abs(offset) <= GoodWindow:
		j.Rating = Good
	}
	return j, true
}

// Reset forgets beats and statistics
func (a *TimingAnalyzer) Reset() {
	a.beats = a.beats[:0]
	a.totalAbs = 0
	a.count = 0
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
