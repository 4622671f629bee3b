package ui

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/tunelab/internal/pitch"
	"github.com/0xlemi/tunelab/internal/rhythm"
)

func TestTunerShowsLockedNote(t *testing.T) {
	m := NewTunerModel("microphone", true)
	assert.Contains(t, m.View(), "Listening for audio")

	ev := pitch.Event{Frequency: 440, Clarity: 0.97, Locked: true, Note: pitch.StandardTuning.Note(440)}
	next, cmd := m.Update(PitchMsg{Event: ev, History: []pitch.HistorySample{{Cents: 0}}})
	assert.Nil(t, cmd)

	view := next.View()
	assert.Contains(t, view, "A4")
	assert.Contains(t, view, "440.00 Hz")
	assert.NotContains(t, view, "Listening for audio")

	next, _ = next.Update(ClearNoteMsg{})
	assert.Contains(t, next.View(), "Listening for audio")
}

func TestTunerQuit(t *testing.T) {
	_, cmd := NewTunerModel("x", false).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTunerShowsError(t *testing.T) {
	next, _ := NewTunerModel("x", false).Update(ErrMsg{Err: errors.New("device lost")})
	assert.Contains(t, next.View(), "device lost")
}

func TestCentsMeter(t *testing.T) {
	// Tests run without a terminal, so styles render as plain text
	needle := func(cents float64) int {
		meter := strings.TrimSuffix(strings.TrimPrefix(centsMeter(cents), "-50 "), " +50")
		return slices.Index([]rune(meter), '●')
	}
	assert.Equal(t, meterWidth/2, needle(0))
	assert.Equal(t, meterWidth/2+10, needle(25))
	assert.Equal(t, 0, needle(-80))
	assert.Equal(t, meterWidth-1, needle(50))
}

func TestCentsTrace(t *testing.T) {
	history := []pitch.HistorySample{{Cents: -50}, {Cents: 0}, {Cents: 50}, {Cents: 90}}
	assert.Equal(t, "▁▅██", centsTrace(history, 10))
	assert.Equal(t, "██", centsTrace(history, 2))
}

func TestChordsView(t *testing.T) {
	m := NewChordsModel("take.wav")
	next, _ := m.Update(ChordMsg{"C4", "E4", "G#4"})
	view := next.View()
	assert.Contains(t, view, "C4 E4 G#4")

	assert.Equal(t, "G#", noteLetter("G#4"))
	assert.Equal(t, "C", noteLetter("C-1"))
}

type fakeMetronome struct {
	cfg     rhythm.Config
	playing bool
}

func (f *fakeMetronome) Start() error         { f.playing = true; return nil }
func (f *fakeMetronome) Stop()                { f.playing = false }
func (f *fakeMetronome) IsPlaying() bool      { return f.playing }
func (f *fakeMetronome) Tempo() float64       { return f.cfg.Tempo }
func (f *fakeMetronome) SetTempo(bpm float64) { f.cfg.Tempo = bpm }
func (f *fakeMetronome) SetSubdivision(n int) { f.cfg.Subdivision = n }
func (f *fakeMetronome) SetPolySubdivision(n int) {
	f.cfg.PolySubdivision = n
}
func (f *fakeMetronome) Config() rhythm.Config { return f.cfg }

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMetronomeKeys(t *testing.T) {
	ctl := &fakeMetronome{cfg: rhythm.DefaultConfig()}
	var m tea.Model = NewMetronomeModel(ctl)

	m, _ = m.Update(key(" "))
	assert.True(t, ctl.playing)
	m, _ = m.Update(key("up"))
	m, _ = m.Update(key("right"))
	assert.Equal(t, 126.0, ctl.cfg.Tempo)
	m, _ = m.Update(key("s"))
	assert.Equal(t, 2, ctl.cfg.Subdivision)
	m, _ = m.Update(key("p"))
	assert.Equal(t, 1, ctl.cfg.PolySubdivision)

	assert.Contains(t, m.View(), "♩ = 126")
	assert.Contains(t, m.View(), "playing")

	_, cmd := m.Update(key("q"))
	assert.False(t, ctl.playing)
	require.NotNil(t, cmd)
}

func TestMetronomeBeatAndTiming(t *testing.T) {
	ctl := &fakeMetronome{cfg: rhythm.DefaultConfig(), playing: true}
	now := time.Unix(100, 0)
	mm := NewMetronomeModel(ctl)
	mm.now = func() time.Time { return now }

	var m tea.Model = mm
	m, _ = m.Update(BeatMsg{Pulse: 2, IsMainBeat: true, Level: rhythm.Normal})
	assert.Contains(t, m.View(), "[3]")

	m, _ = m.Update(TimingMsg{Offset: -12 * time.Millisecond, Rating: rhythm.Perfect, MeanError: 12 * time.Millisecond, Count: 1})
	assert.Contains(t, m.View(), "-12ms perfect")

	m, _ = m.Update(TempoMsg(150))
	assert.Contains(t, m.View(), "♩ = 150")
}
