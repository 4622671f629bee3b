// Package ui holds the bubbletea screens of tunelab.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	inTuneStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	offStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// nextNote returns the natural above a natural, used for the right half of a sharp
func nextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

func noteBlock(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333"))
}

// renderNote draws a note badge. Sharps are split between the colors of their two neighbours.
func renderNote(name, label string, padding int) string {
	if !strings.HasSuffix(name, "#") {
		color, ok := noteColors[name]
		if !ok {
			return infoStyle.Render(label)
		}
		return noteBlock(color).Padding(padding, padding*2).Render(label)
	}

	base := name[:1]
	left := noteBlock(noteColors[base]).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingTop(padding).
		PaddingBottom(padding).
		PaddingLeft(padding * 2).
		PaddingRight(1)
	right := noteBlock(noteColors[nextNote(base)]).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingTop(padding).
		PaddingBottom(padding).
		PaddingLeft(1).
		PaddingRight(padding * 2)

	return lipgloss.JoinHorizontal(lipgloss.Top, left.Render(base), right.Render(label[1:]))
}
