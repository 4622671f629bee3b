package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xlemi/tunelab/internal/pitch"
)

// Width of the cents meter and history trace in cells
const meterWidth = 41

// PitchMsg carries one stabilized pitch event and the cents history behind it
type PitchMsg struct {
	Event   pitch.Event
	History []pitch.HistorySample
}

// LevelMsg carries the input level
type LevelMsg struct {
	RMS float64
	DB  float64
}

// ClearNoteMsg clears the display
type ClearNoteMsg struct{}

// ErrMsg reports a fatal capture error
type ErrMsg struct{ Err error }

// TunerModel is the monophonic tuner screen
type TunerModel struct {
	source    string
	showLevel bool
	event     pitch.Event
	history   []pitch.HistorySample
	rms       float64
	db        float64
	err       error
	width     int
	height    int
}

// NewTunerModel creates the tuner screen. source names the input for the header.
func NewTunerModel(source string, showLevel bool) TunerModel {
	return TunerModel{
		source:    source,
		showLevel: showLevel,
		db:        -100,
	}
}

// Init initializes the UI model
func (m TunerModel) Init() tea.Cmd {
	return nil
}

// Update updates the UI model based on messages
func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case PitchMsg:
		m.event = msg.Event
		m.history = msg.History

	case LevelMsg:
		m.rms = msg.RMS
		m.db = msg.DB

	case ClearNoteMsg:
		m.event = pitch.Event{}

	case ErrMsg:
		m.err = msg.Err
	}

	return m, nil
}

// View renders the UI
func (m TunerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TuneLab - Tuner"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Input: " + m.source))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(offStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.event.Locked {
		note := m.event.Note
		b.WriteString(renderNote(note.Name, note.String(), 2))
		b.WriteString("\n")
		b.WriteString(centsMeter(note.Cents))
		b.WriteString("\n")

		info := fmt.Sprintf("Frequency: %.2f Hz | Cents: %+.1f | Clarity: %.2f",
			m.event.Frequency,
			note.Cents,
			m.event.Clarity)
		if m.event.Held {
			info += " | held"
		}
		b.WriteString(infoStyle.Render(info))
	} else {
		b.WriteString(infoStyle.Render("Listening for audio..."))
	}

	if len(m.history) > 0 {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(centsTrace(m.history, meterWidth)))
	}

	if m.showLevel {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("Level: %.4f RMS | %.1f dB", m.rms, m.db)))
	}

	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Press q to quit"))
	return b.String()
}

// centsMeter draws a needle between -50 and +50 cents
func centsMeter(cents float64) string {
	center := meterWidth / 2
	pos := center + int(math.Round(cents/50*float64(center)))
	pos = min(max(pos, 0), meterWidth-1)

	cells := []rune(strings.Repeat("-", meterWidth))
	cells[center] = '|'
	cells[pos] = '●'

	style := offStyle
	if math.Abs(cents) <= 5 {
		style = inTuneStyle
	}
	return "-50 " + style.Render(string(cells)) + " +50"
}

var traceLevels = []rune("▁▂▃▄▅▆▇█")

// centsTrace draws the most recent history samples as a strip, flat in tune
func centsTrace(history []pitch.HistorySample, width int) string {
	if len(history) > width {
		history = history[len(history)-width:]
	}

	out := make([]rune, len(history))
	top := float64(len(traceLevels) - 1)
	for i, h := range history {
		level := (math.Max(math.Min(h.Cents, 50), -50) + 50) / 100 * top
		out[i] = traceLevels[int(math.Round(level))]
	}
	return string(out)
}
