package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agusx1211/scamsim/internal/scenario"
)

// Styles are the lipgloss styles derived from one Palette.
type Styles struct {
	Palette Palette

	Header      lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style

	Panel       lipgloss.Style
	PanelTitle  lipgloss.Style
	Card        lipgloss.Style
	CardActive  lipgloss.Style
	ListItem    lipgloss.Style
	ListActive  lipgloss.Style
	Dim         lipgloss.Style
	Typing      lipgloss.Style
	Timer       lipgloss.Style
	Ended       lipgloss.Style
	IOCCategory lipgloss.Style
	IOCValue    lipgloss.Style

	Scammer lipgloss.Style
	Persona lipgloss.Style
	System  lipgloss.Style
}

// NewStyles builds the style set for p.
func NewStyles(p Palette) Styles {
	return Styles{
		Palette: p,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Base).
			Background(p.Blue).
			Padding(0, 2),
		StatusBar: lipgloss.NewStyle().
			Foreground(p.Subtext0).
			Background(p.Surface0).
			Padding(0, 1),
		StatusKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Lavender).
			Background(p.Surface0),
		StatusValue: lipgloss.NewStyle().
			Foreground(p.Subtext0).
			Background(p.Surface0),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Surface1).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Mauve),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Surface1).
			Foreground(p.Subtext0).
			Padding(0, 1),
		CardActive: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(p.Mauve).
			Foreground(p.Text).
			Padding(0, 1),
		ListItem: lipgloss.NewStyle().
			Foreground(p.Subtext0).
			PaddingLeft(2),
		ListActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Lavender).
			PaddingLeft(1).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(p.Mauve),
		Dim: lipgloss.NewStyle().
			Foreground(p.Overlay0),
		Typing: lipgloss.NewStyle().
			Foreground(p.Overlay0).
			Italic(true),
		Timer: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Yellow),
		Ended: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Green),
		IOCCategory: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Peach),
		IOCValue: lipgloss.NewStyle().
			Foreground(p.Red),

		Scammer: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Red),
		Persona: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Teal),
		System: lipgloss.NewStyle().
			Italic(true).
			Foreground(p.Overlay0),
	}
}

// Role returns the speaker label style for r.
func (s Styles) Role(r scenario.Role) lipgloss.Style {
	switch r {
	case scenario.RoleScammer:
		return s.Scammer
	case scenario.RolePersona:
		return s.Persona
	default:
		return s.System
	}
}
