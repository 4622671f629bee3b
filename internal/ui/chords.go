package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ChordMsg carries the stable notes of the latest analysis pass, lowest first
type ChordMsg []string

// ChordsModel shows every note currently sounding
type ChordsModel struct {
	source string
	notes  []string
	err    error
}

// NewChordsModel creates the chord screen
func NewChordsModel(source string) ChordsModel {
	return ChordsModel{source: source}
}

// Init initializes the UI model
func (m ChordsModel) Init() tea.Cmd {
	return nil
}

// Update updates the UI model based on messages
func (m ChordsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case ChordMsg:
		m.notes = msg
	case ClearNoteMsg:
		m.notes = nil
	case ErrMsg:
		m.err = msg.Err
	}
	return m, nil
}

// View renders the UI
func (m ChordsModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TuneLab - Chords"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Input: " + m.source))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(offStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	if len(m.notes) == 0 {
		b.WriteString(infoStyle.Render("Listening for audio..."))
	} else {
		badges := make([]string, 0, len(m.notes))
		for _, n := range m.notes {
			badges = append(badges, renderNote(noteLetter(n), n, 1))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, badges...))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(strings.Join(m.notes, " ")))
	}

	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Press q to quit"))
	return b.String()
}

// noteLetter strips the octave from a name such as "C#4"
func noteLetter(name string) string {
	return strings.TrimRight(name, "-0123456789")
}
