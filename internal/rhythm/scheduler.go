package rhythm

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xlemi/tunelab/internal/audio"
	"github.com/0xlemi/tunelab/internal/logging"
)

// Beat is one scheduled pulse
type Beat struct {
	Pulse      int           // Pulse index within its lane since Start
	Bar        int           // Bar the pulse belongs to
	Time       time.Duration // Audio clock time the pulse should sound at
	IsMainBeat bool          // Main-lane pulse on a beat rather than a subdivision
	IsPolyLane bool
	Downbeat   bool // First main-lane pulse of a bar
	Level      Accent
	Muted      bool // Pulse is silent (level, stealth or gap-click) but still delivered
}

type lane struct {
	next  float64 // Seconds on the audio clock; +Inf while the poly lane waits for a downbeat
	pulse int
	inBar int
	bar   int
}

type delivery struct {
	beat      Beat
	tempo     float64
	tempoOnly bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRand sets the random source used by gap-click
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// WithLogger sets the scheduler logger
func WithLogger(log logging.Logger) Option {
	return func(s *Scheduler) { s.log = logging.OrNoOp(log) }
}

// Scheduler is a lookahead metronome. Each tick schedules every pulse due
// within ScheduleAhead of the audio clock, so callers can place clicks with
// sample accuracy even though ticks themselves are jittery.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	source  audio.ClockSource
	clock   audio.Clock
	rng     *rand.Rand
	log     logging.Logger
	playing bool
	gen     uint64
	cancel  context.CancelFunc
	main    lane
	poly    lane

	// deliverMu is held while callbacks run; deliverer is the goroutine holding it
	deliverMu sync.Mutex
	deliverer atomic.Uint64

	beatObs  observers[Beat]
	tempoObs observers[float64]
}

// NewScheduler creates a stopped scheduler. The clock is acquired from source on the first Start.
func NewScheduler(cfg Config, source audio.ClockSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:    cfg.Clamp(),
		source: source,
		log:    logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Start begins playback from pulse 0 at the current audio clock time
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return nil
	}
	if s.clock == nil {
		clock, err := s.source.AcquireClock()
		if err != nil {
			return fmt.Errorf("failed to acquire audio clock: %w", err)
		}
		s.clock = clock
	}

	origin := s.clock.Now().Seconds()
	s.main = lane{next: origin}
	s.poly = idleLane()
	s.playing = true
	s.gen++

	if interval := s.cfg.LookaheadInterval; interval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.loop(ctx, interval)
	}

	s.log.Debug("scheduler started", logging.Fields{"tempo": s.cfg.Tempo, "origin": origin})
	return nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Stop halts playback. It is idempotent and may be called from a beat callback.
// No callback starts after Stop returns: called from any other goroutine, Stop
// waits for a callback in progress to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.playing {
		s.playing = false
		s.gen++
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.log.Debug("scheduler stopped", logging.Fields{"pulses": s.main.pulse})
	}
	s.mu.Unlock()

	// Wait out a delivery in progress unless it is the one calling Stop
	if s.deliverer.Load() != goroutineID() {
		s.deliverMu.Lock()
		s.deliverMu.Unlock()
	}
}

// Dispose stops playback, drops all observers and releases the audio clock
func (s *Scheduler) Dispose() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.beatObs.clear()
	s.tempoObs.clear()
	if s.clock != nil {
		s.clock = nil
		s.source.ReleaseClock()
	}
}

// IsPlaying reports whether the scheduler is running
func (s *Scheduler) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Tick schedules every pulse due within the lookahead window and delivers it.
// The internal loop calls it; with a zero LookaheadInterval the host does.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	horizon := s.clock.Now().Seconds() + s.cfg.ScheduleAhead.Seconds()

	// Lanes are merged in time order so a main downbeat re-anchors the poly
	// lane only after the poly pulses before it
	var out []delivery
merge:
	for {
		polyDue := s.cfg.PolySubdivision > 0 && s.poly.next < horizon
		switch {
		case s.main.next < horizon && (!polyDue || s.main.next <= s.poly.next):
			out = s.mainPulse(out)
		case polyDue:
			out = s.polyPulse(out)
		default:
			break merge
		}
	}
	beatFns := s.beatObs.snapshot()
	tempoFns := s.tempoObs.snapshot()
	s.mu.Unlock()
	if len(out) == 0 {
		return
	}

	s.deliverMu.Lock()
	s.deliverer.Store(goroutineID())
	defer func() {
		s.deliverer.Store(0)
		s.deliverMu.Unlock()
	}()

	for _, d := range out {
		if d.tempoOnly {
			for _, fn := range tempoFns {
				if !s.current(gen) {
					return
				}
				fn(d.tempo)
			}
			continue
		}
		for _, fn := range beatFns {
			if !s.current(gen) {
				return
			}
			fn(d.beat)
		}
	}
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && s.gen == gen
}

func (s *Scheduler) pulsesPerBar() int {
	return BeatsPerBar * s.cfg.Subdivision
}

func (s *Scheduler) mainSeconds() float64 {
	return 60 / s.cfg.Tempo / float64(s.cfg.Subdivision)
}

func (s *Scheduler) polySeconds() float64 {
	return 60 / s.cfg.Tempo * BeatsPerBar / float64(s.cfg.PolySubdivision)
}

// mainPulse builds the next main-lane pulse, applies progression at bar
// starts, and advances the lane. Called with the lock held.
func (s *Scheduler) mainPulse(out []delivery) []delivery {
	l := &s.main
	if l.inBar >= s.pulsesPerBar() {
		// Subdivision shrank mid-bar
		l.inBar = 0
		l.bar++
	}

	beat := Beat{
		Pulse:      l.pulse,
		Bar:        l.bar,
		Time:       seconds(l.next),
		IsMainBeat: l.inBar%s.cfg.Subdivision == 0,
		Downbeat:   l.inBar == 0,
		Level:      s.accent(l.pulse, l.inBar),
	}
	beat.Muted = beat.Level == Muted || s.stealthMuted(l.bar)
	if !beat.Muted && l.inBar != 0 && s.cfg.MuteProbability > 0 {
		beat.Muted = s.rng.Float64() < s.cfg.MuteProbability
	}
	out = append(out, delivery{beat: beat})

	if l.inBar == 0 {
		if l.pulse > 0 {
			if tempo, ok := s.progress(l.bar); ok {
				out = append(out, delivery{tempo: tempo, tempoOnly: true})
			}
		}
		s.anchorPoly(l.next, l.bar)
	}

	l.next += s.mainSeconds()
	l.pulse++
	l.inBar++
	if l.inBar >= s.pulsesPerBar() {
		l.inBar = 0
		l.bar++
	}
	return out
}

func idleLane() lane {
	return lane{next: math.Inf(1)}
}

// anchorPoly starts a poly bar on the main downbeat at t. The poly pulse on the
// downbeat itself belongs to the main lane and is skipped; pulses left from a
// bar cut short by a tempo change are dropped. Called with the lock held.
func (s *Scheduler) anchorPoly(t float64, bar int) {
	n := s.cfg.PolySubdivision
	if n == 0 {
		return
	}
	l := &s.poly
	if l.inBar > 0 {
		l.pulse += max(n-l.inBar, 0)
	}
	l.pulse++
	l.bar = bar
	l.inBar = 1
	l.next = t + s.polySeconds()
	if l.inBar >= n {
		l.inBar = 0
		l.next = math.Inf(1)
	}
}

// polyPulse builds the next poly pulse. After the last pulse of a bar the lane
// idles until the next main downbeat anchors it.
func (s *Scheduler) polyPulse(out []delivery) []delivery {
	l := &s.poly
	out = append(out, delivery{beat: Beat{
		Pulse:      l.pulse,
		Bar:        l.bar,
		Time:       seconds(l.next),
		IsPolyLane: true,
		Level:      Poly,
		Muted:      s.stealthMuted(l.bar),
	}})

	l.next += s.polySeconds()
	l.pulse++
	l.inBar++
	if l.inBar >= s.cfg.PolySubdivision {
		l.inBar = 0
		l.next = math.Inf(1)
	}
	return out
}

func (s *Scheduler) accent(pulse, inBar int) Accent {
	if n := len(s.cfg.AccentPattern); n > 0 {
		return s.cfg.AccentPattern[pulse%n]
	}
	switch {
	case inBar == 0:
		return Strong
	case inBar%s.cfg.Subdivision == 0:
		return Normal
	default:
		return Weak
	}
}

func (s *Scheduler) stealthMuted(bar int) bool {
	if !s.cfg.StealthEnabled {
		return false
	}
	cycle := s.cfg.StealthBarsOn + s.cfg.StealthBarsOff
	return bar%cycle >= s.cfg.StealthBarsOn
}

// progress moves the tempo one step toward the goal when bar closes an interval
func (s *Scheduler) progress(bar int) (float64, bool) {
	every := s.cfg.ProgressionIntervalBars
	step := s.cfg.ProgressionIncrement
	if every <= 0 || step == 0 || bar%every != 0 {
		return 0, false
	}

	goal := s.cfg.ProgressionGoal
	tempo := s.cfg.Tempo
	switch {
	case step > 0 && tempo < goal:
		tempo = math.Min(tempo+step, goal)
	case step < 0 && tempo > goal:
		tempo = math.Max(tempo+step, goal)
	default:
		return 0, false
	}
	tempo = clampTempo(tempo)
	if tempo == s.cfg.Tempo {
		return 0, false
	}

	s.log.Info("tempo progressed", logging.Fields{"bar": bar, "from": s.cfg.Tempo, "to": tempo})
	s.cfg.Tempo = tempo
	return tempo, true
}

func seconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}

// goroutineID parses the current goroutine's id from its stack header
func goroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// Config returns a copy of the current settings
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cfg
	c.AccentPattern = clampPattern(c.AccentPattern)
	return c
}

// Tempo returns the current tempo in BPM
func (s *Scheduler) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Tempo
}

// SetTempo changes the tempo, clamped to [40, 300], and notifies tempo observers
func (s *Scheduler) SetTempo(bpm float64) {
	s.mu.Lock()
	bpm = clampTempo(bpm)
	changed := bpm != s.cfg.Tempo
	s.cfg.Tempo = bpm
	fns := s.tempoObs.snapshot()
	s.mu.Unlock()

	if changed {
		for _, fn := range fns {
			fn(bpm)
		}
	}
}

// SetSubdivision sets main pulses per beat, clamped to [1, 4]
func (s *Scheduler) SetSubdivision(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Subdivision = min(max(n, 1), MaxSubdivision)
}

// SetPolySubdivision sets poly pulses per bar, clamped to [0, 16]. Enabling or
// changing it while playing starts the lane on the next main bar.
func (s *Scheduler) SetPolySubdivision(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n = min(max(n, 0), MaxPolySubdivision)
	if n == s.cfg.PolySubdivision {
		return
	}
	s.cfg.PolySubdivision = n
	if s.playing && n > 0 {
		s.alignPoly()
	}
}

// alignPoly restarts the poly lane from the next main downbeat
func (s *Scheduler) alignPoly() {
	s.poly = idleLane()
}

// SetMuteProbability sets the gap-click probability, clamped to [0, 1]
func (s *Scheduler) SetMuteProbability(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MuteProbability = clampProbability(p)
}

// SetStealth configures stealth bars; counts below 1 become 1
func (s *Scheduler) SetStealth(enabled bool, barsOn, barsOff int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.StealthEnabled = enabled
	s.cfg.StealthBarsOn = max(barsOn, 1)
	s.cfg.StealthBarsOff = max(barsOff, 1)
}

// SetProgression configures automatic tempo steps. An interval of 0 disables them.
func (s *Scheduler) SetProgression(increment float64, intervalBars int, goal float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.ProgressionIncrement = increment
	s.cfg.ProgressionIntervalBars = intervalBars
	s.cfg.ProgressionGoal = goal
	s.cfg = s.cfg.Clamp()
}

// SetAccentPattern replaces the accent pattern; levels are clamped to [Muted, Strong]
func (s *Scheduler) SetAccentPattern(pattern []Accent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.AccentPattern = clampPattern(pattern)
}

// OnBeat registers fn for every delivered pulse and returns a function that unregisters it
func (s *Scheduler) OnBeat(fn func(Beat)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.beatObs.add(fn)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.beatObs.remove(id)
	}
}

// OnTempoChange registers fn for tempo changes and returns a function that unregisters it
func (s *Scheduler) OnTempoChange(fn func(bpm float64)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.tempoObs.add(fn)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tempoObs.remove(id)
	}
}
