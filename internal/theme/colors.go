// Package theme holds the dark and light palettes used by the terminal player.
package theme

import "github.com/charmbracelet/lipgloss"

// Names accepted by Get and Toggle.
const (
	Dark  = "dark"
	Light = "light"
)

// Palette is one set of theme colors.
type Palette struct {
	Name string

	Base     lipgloss.Color
	Surface0 lipgloss.Color
	Surface1 lipgloss.Color
	Overlay0 lipgloss.Color
	Text     lipgloss.Color
	Subtext0 lipgloss.Color

	Red      lipgloss.Color
	Green    lipgloss.Color
	Yellow   lipgloss.Color
	Blue     lipgloss.Color
	Mauve    lipgloss.Color
	Teal     lipgloss.Color
	Peach    lipgloss.Color
	Lavender lipgloss.Color
}

// Mocha is the dark palette, after Catppuccin Mocha.
var Mocha = Palette{
	Name:     Dark,
	Base:     lipgloss.Color("#1e1e2e"),
	Surface0: lipgloss.Color("#313244"),
	Surface1: lipgloss.Color("#45475a"),
	Overlay0: lipgloss.Color("#6c7086"),
	Text:     lipgloss.Color("#cdd6f4"),
	Subtext0: lipgloss.Color("#a6adc8"),
	Red:      lipgloss.Color("#f38ba8"),
	Green:    lipgloss.Color("#a6e3a1"),
	Yellow:   lipgloss.Color("#f9e2af"),
	Blue:     lipgloss.Color("#89b4fa"),
	Mauve:    lipgloss.Color("#cba6f7"),
	Teal:     lipgloss.Color("#94e2d5"),
	Peach:    lipgloss.Color("#fab387"),
	Lavender: lipgloss.Color("#b4befe"),
}

// Latte is the light palette, after Catppuccin Latte.
var Latte = Palette{
	Name:     Light,
	Base:     lipgloss.Color("#eff1f5"),
	Surface0: lipgloss.Color("#ccd0da"),
	Surface1: lipgloss.Color("#bcc0cc"),
	Overlay0: lipgloss.Color("#9ca0b0"),
	Text:     lipgloss.Color("#4c4f69"),
	Subtext0: lipgloss.Color("#6c6f85"),
	Red:      lipgloss.Color("#d20f39"),
	Green:    lipgloss.Color("#40a02b"),
	Yellow:   lipgloss.Color("#df8e1d"),
	Blue:     lipgloss.Color("#1e66f5"),
	Mauve:    lipgloss.Color("#8839ef"),
	Teal:     lipgloss.Color("#179299"),
	Peach:    lipgloss.Color("#fe640b"),
	Lavender: lipgloss.Color("#7287fd"),
}

// Get returns the palette for name. Unknown names get the dark palette.
func Get(name string) Palette {
	if name == Light {
		return Latte
	}
	return Mocha
}

// Toggle returns the other theme name.
func Toggle(name string) string {
	if name == Light {
		return Dark
	}
	return Light
}
