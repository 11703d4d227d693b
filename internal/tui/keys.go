package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the player's key bindings.
type KeyMap struct {
	Left  key.Binding
	Right key.Binding
	Up    key.Binding
	Down  key.Binding
	Load  key.Binding
	Step  key.Binding
	Auto  key.Binding
	Reset key.Binding
	Theme key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key map for the player.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/→", "persona"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/↓", "scenario"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		Load: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "load"),
		),
		Step: key.NewBinding(
			key.WithKeys(" ", "n"),
			key.WithHelp("space", "step"),
		),
		Auto: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Up, k.Load, k.Step, k.Auto, k.Reset, k.Theme, k.Quit}
}
