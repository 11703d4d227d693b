// Package tui is the interactive terminal player: a persona carousel, the
// persona's scenarios, the chat transcript and the evidence pane.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agusx1211/scamsim/internal/debug"
	"github.com/agusx1211/scamsim/internal/eventq"
	"github.com/agusx1211/scamsim/internal/events"
	"github.com/agusx1211/scamsim/internal/playback"
	"github.com/agusx1211/scamsim/internal/scenario"
	"github.com/agusx1211/scamsim/internal/theme"
)

// Options configures the player.
type Options struct {
	Pacing playback.Pacing
	Clock  playback.Clock
	Theme  string
	// SaveTheme persists the theme after a toggle. Nil skips persisting.
	SaveTheme func(name string) error
	// Sinks receive every engine event alongside the player.
	Sinks []playback.Sink
	// Scenario preloads a scenario by id.
	Scenario string
}

type chatLine struct {
	index int
	role  scenario.Role
	text  string
}

// Model is the bubbletea model for the player.
type Model struct {
	catalog   *scenario.Catalog
	personas  []scenario.Persona
	engine    *playback.Engine
	queue     *eventq.Queue[any]
	keys      KeyMap
	saveTheme func(string) error

	themeName string
	styles    theme.Styles
	width     int
	height    int

	personaIdx  int
	scenarios   []*scenario.Scenario
	scenarioIdx int

	// Session state, rebuilt from engine events.
	loaded    *scenario.Scenario
	session   string
	chat      []chatLine
	typing    bool
	typingIdx int
	revealed  []scenario.IOC
	elapsed   time.Duration
	running   bool
	complete  bool
	ended     bool
	status    string
}

// New creates a player over catalog. The engine starts idle unless
// opts.Scenario names a scenario to preload.
func New(catalog *scenario.Catalog, opts Options) (Model, error) {
	queue := eventq.NewQueue[any]()
	sinks := append([]playback.Sink{events.NewQueueSink(queue)}, opts.Sinks...)

	name := opts.Theme
	if name == "" {
		name = theme.Dark
	}
	m := Model{
		catalog:   catalog,
		personas:  catalog.Personas(),
		queue:     queue,
		keys:      DefaultKeyMap(),
		saveTheme: opts.SaveTheme,
		themeName: name,
		styles:    theme.NewStyles(theme.Get(name)),
		width:     100,
		height:    30,
		engine: playback.New(playback.Tee(sinks...), playback.Options{
			Pacing: opts.Pacing,
			Clock:  opts.Clock,
		}),
	}
	m.selectPersona(0)

	if opts.Scenario != "" {
		sc, err := catalog.Scenario(opts.Scenario)
		if err != nil {
			m.Close()
			return Model{}, err
		}
		m.focusScenario(sc)
		m.load(sc)
	}
	return m, nil
}

// Close stops the engine's timers and releases a pending waitForEvent.
func (m Model) Close() {
	m.engine.Close()
	m.queue.Close()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.queue),
		tea.SetWindowTitle("scamsim"),
	)
}

// waitForEvent returns a Cmd that waits for the next engine event.
func waitForEvent(q *eventq.Queue[any]) tea.Cmd {
	return func() tea.Msg {
		msg, ok := q.Pop(context.Background())
		if !ok {
			return events.ClosedMsg{}
		}
		return msg
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case events.ClosedMsg:
		return m, nil
	}
	if m.applyEvent(msg) {
		return m, waitForEvent(m.queue)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.selectPersona(m.personaIdx - 1)
	case key.Matches(msg, m.keys.Right):
		m.selectPersona(m.personaIdx + 1)
	case key.Matches(msg, m.keys.Up):
		if m.scenarioIdx > 0 {
			m.scenarioIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.scenarioIdx < len(m.scenarios)-1 {
			m.scenarioIdx++
		}
	case key.Matches(msg, m.keys.Load):
		if len(m.scenarios) == 0 {
			m.status = "no scenarios for this persona"
			break
		}
		m.load(m.scenarios[m.scenarioIdx])
	case key.Matches(msg, m.keys.Step):
		if m.loaded == nil {
			m.status = "pick a scenario and press enter"
			break
		}
		m.engine.Step()
	case key.Matches(msg, m.keys.Auto):
		if m.loaded == nil {
			m.status = "pick a scenario and press enter"
			break
		}
		m.engine.ToggleAutoPlay()
	case key.Matches(msg, m.keys.Reset):
		if m.loaded != nil {
			m.engine.Reset(m.loaded)
		}
	case key.Matches(msg, m.keys.Theme):
		m.themeName = theme.Toggle(m.themeName)
		m.styles = theme.NewStyles(theme.Get(m.themeName))
		if m.saveTheme != nil {
			if err := m.saveTheme(m.themeName); err != nil {
				debug.LogKV("tui", "theme not saved", "theme", m.themeName, "error", err)
				m.status = fmt.Sprintf("theme not saved: %v", err)
			}
		}
	}
	return m, nil
}

// applyEvent folds one engine event into the model. Events from an earlier
// session can still be queued after a reset; they are dropped.
func (m *Model) applyEvent(msg tea.Msg) bool {
	switch ev := msg.(type) {
	case events.ClearedMsg:
		m.session = ev.SessionID
		m.chat = nil
		m.typing = false
		m.revealed = nil
		m.elapsed = 0
		m.running = false
		m.complete = false
		m.ended = false
		m.status = ""
	case events.TypingMsg:
		if ev.SessionID == m.session {
			m.typing = true
			m.typingIdx = ev.Index
		}
	case events.MessageMsg:
		if ev.SessionID == m.session {
			m.typing = false
			m.chat = append(m.chat, chatLine{index: ev.Index, role: ev.Role, text: ev.Text})
			m.complete = ev.Terminal
		}
	case events.RevealMsg:
		if ev.SessionID == m.session {
			m.revealed = append(m.revealed, ev.IOCs...)
		}
	case events.EndedMsg:
		if ev.SessionID == m.session {
			m.ended = true
			m.status = "end of conversation, press r to replay"
		}
	case events.TickMsg:
		if ev.SessionID == m.session {
			m.elapsed = ev.Elapsed
		}
	case events.AutoPlayMsg:
		if ev.SessionID == m.session {
			m.running = ev.Running
		}
	default:
		return false
	}
	return true
}

func (m *Model) selectPersona(idx int) {
	n := len(m.personas)
	if n == 0 {
		return
	}
	m.personaIdx = ((idx % n) + n) % n
	m.scenarios = m.catalog.ScenariosFor(m.personas[m.personaIdx].ID)
	m.scenarioIdx = 0
}

// focusScenario moves the carousel and list selection onto sc.
func (m *Model) focusScenario(sc *scenario.Scenario) {
	for i, p := range m.personas {
		if p.ID == sc.Persona {
			m.selectPersona(i)
			break
		}
	}
	for i, s := range m.scenarios {
		if s.ID == sc.ID {
			m.scenarioIdx = i
		}
	}
}

func (m *Model) load(sc *scenario.Scenario) {
	m.loaded = sc
	m.engine.Reset(sc)
}

// Run launches the player and blocks until the user quits.
func Run(catalog *scenario.Catalog, opts Options) error {
	m, err := New(catalog, opts)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
