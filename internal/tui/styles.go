// Package tui holds the terminal programs for the assessment and the mock interview.
package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"jobprep/internal/assessment"
)

// Band colors follow the web progress bar: red, amber, green.
var (
	colorLow    = lipgloss.Color("#e53935")
	colorMid    = lipgloss.Color("#FFC107")
	colorHigh   = lipgloss.Color("#43A047")
	colorAccent = lipgloss.Color("#2196F3")
	colorMuted  = lipgloss.Color("#8a8f98")
)

// Styles is the shared look of both programs.
type Styles struct {
	Title    lipgloss.Style
	Subtle   lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Choice   lipgloss.Style
	Speaker  lipgloss.Style
	Help     lipgloss.Style
	Box      lipgloss.Style
}

// DefaultStyles returns the stock palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Subtle:   lipgloss.NewStyle().Foreground(colorMuted),
		Error:    lipgloss.NewStyle().Foreground(colorLow).Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(colorMid),
		Cursor:   lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(colorAccent).Padding(0, 1),
		Choice:   lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1),
		Speaker:  lipgloss.NewStyle().Bold(true),
		Help:     lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
	}
}

// BandColor maps a progress band to its bar color.
func BandColor(b assessment.Band) lipgloss.Color {
	switch b {
	case assessment.BandLow:
		return colorLow
	case assessment.BandMid:
		return colorMid
	default:
		return colorHigh
	}
}

// bandBars builds one solid-fill progress bar per band.
func bandBars(width int) map[assessment.Band]progress.Model {
	bars := make(map[assessment.Band]progress.Model, 3)
	for _, b := range []assessment.Band{assessment.BandLow, assessment.BandMid, assessment.BandHigh} {
		p := progress.New(progress.WithSolidFill(string(BandColor(b))), progress.WithoutPercentage())
		p.Width = width
		bars[b] = p
	}
	return bars
}
