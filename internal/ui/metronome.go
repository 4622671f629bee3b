package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/tunelab/internal/rhythm"
)

// How long a beat stays lit
const beatFlash = 120 * time.Millisecond

// Metronome is the scheduler surface the metronome screen drives
type Metronome interface {
	Start() error
	Stop()
	IsPlaying() bool
	Tempo() float64
	SetTempo(bpm float64)
	SetSubdivision(n int)
	SetPolySubdivision(n int)
	Config() rhythm.Config
}

// BeatMsg is sent when a pulse sounds
type BeatMsg rhythm.Beat

// TempoMsg is sent when the tempo changes
type TempoMsg float64

// TimingMsg carries the judgement of a played onset
type TimingMsg rhythm.Judgement

// TickMsg represents a timer tick
type TickMsg time.Time

var (
	beatOnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4"))
	beatMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	polyStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
)

// MetronomeModel is the metronome screen
type MetronomeModel struct {
	ctl      Metronome
	cfg      rhythm.Config
	playing  bool
	beat     rhythm.Beat
	beatAt   time.Time
	polyAt   time.Time
	timing   rhythm.Judgement
	hasTimed bool
	err      error
	now      func() time.Time
}

// NewMetronomeModel creates the metronome screen around ctl
func NewMetronomeModel(ctl Metronome) MetronomeModel {
	return MetronomeModel{
		ctl:     ctl,
		cfg:     ctl.Config(),
		playing: ctl.IsPlaying(),
		now:     time.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(40*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init initializes the UI model
func (m MetronomeModel) Init() tea.Cmd {
	return tick()
}

// Update updates the UI model based on messages
func (m MetronomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctl.Stop()
			return m, tea.Quit
		case " ":
			if m.ctl.IsPlaying() {
				m.ctl.Stop()
			} else if err := m.ctl.Start(); err != nil {
				m.err = err
			}
		case "up", "+", "=":
			m.ctl.SetTempo(m.ctl.Tempo() + 1)
		case "down", "-":
			m.ctl.SetTempo(m.ctl.Tempo() - 1)
		case "right":
			m.ctl.SetTempo(m.ctl.Tempo() + 5)
		case "left":
			m.ctl.SetTempo(m.ctl.Tempo() - 5)
		case "s":
			m.ctl.SetSubdivision(m.cfg.Subdivision%rhythm.MaxSubdivision + 1)
		case "p":
			m.ctl.SetPolySubdivision((m.cfg.PolySubdivision + 1) % 8)
		}
		m.cfg = m.ctl.Config()
		m.playing = m.ctl.IsPlaying()

	case BeatMsg:
		if msg.IsPolyLane {
			if !msg.Muted {
				m.polyAt = m.now()
			}
			return m, nil
		}
		m.beat = rhythm.Beat(msg)
		m.beatAt = m.now()

	case TempoMsg:
		m.cfg.Tempo = float64(msg)

	case TimingMsg:
		m.timing = rhythm.Judgement(msg)
		m.hasTimed = true

	case ErrMsg:
		m.err = msg.Err

	case TickMsg:
		m.playing = m.ctl.IsPlaying()
		return m, tick()
	}

	return m, nil
}

// View renders the UI
func (m MetronomeModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TuneLab - Metronome"))
	b.WriteString("\n")

	state := "stopped"
	if m.playing {
		state = "playing"
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("♩ = %.0f | subdivision %d | poly %d | %s",
		m.cfg.Tempo, m.cfg.Subdivision, m.cfg.PolySubdivision, state)))
	b.WriteString("\n\n")

	b.WriteString(m.barView())
	if m.cfg.PolySubdivision > 0 {
		mark := dimStyle.Render("○")
		if m.now().Sub(m.polyAt) < beatFlash {
			mark = polyStyle.Render("●")
		}
		b.WriteString("  " + mark)
	}
	b.WriteString("\n\n")

	if m.hasTimed {
		style := offStyle
		if m.timing.Rating != rhythm.Off {
			style = inTuneStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%+dms %s", m.timing.Offset.Milliseconds(), m.timing.Rating)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  mean %dms over %d", m.timing.MeanError.Milliseconds(), m.timing.Count)))
		b.WriteString("\n\n")
	}

	if m.err != nil {
		b.WriteString(offStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(infoStyle.Render("space start/stop | ↑↓ ±1 | ←→ ±5 | s subdivision | p poly | q quit"))
	return b.String()
}

// barView draws one cell per pulse of the bar, lighting the current one
func (m MetronomeModel) barView() string {
	perBar := rhythm.BeatsPerBar * m.cfg.Subdivision
	current := -1
	if m.playing && m.now().Sub(m.beatAt) < beatFlash {
		current = m.beat.Pulse % perBar
	}

	cells := make([]string, perBar)
	for i := range cells {
		label := "·"
		if i%m.cfg.Subdivision == 0 {
			label = fmt.Sprint(i/m.cfg.Subdivision + 1)
		}
		switch {
		case i == current && m.beat.Muted:
			cells[i] = beatMutedStyle.Render("[" + label + "]")
		case i == current:
			cells[i] = beatOnStyle.Render("[" + label + "]")
		default:
			cells[i] = dimStyle.Render(" " + label + " ")
		}
	}
	return strings.Join(cells, "")
}
