package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/agusx1211/scamsim/internal/scenario"
)

const (
	leftWidth  = 34
	rightWidth = 34
	minChat    = 30
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	header := m.renderHeader()
	statusBar := m.renderStatusBar()

	panelH := m.height - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if panelH < 4 {
		panelH = 4
	}
	chatW := m.width - leftWidth - rightWidth
	if chatW < minChat {
		chatW = minChat
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderCarousel(leftWidth),
		m.renderScenarioList(leftWidth, panelH-carouselHeight),
	)
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		m.renderChat(chatW, panelH),
		m.renderEvidence(rightWidth, panelH),
	)
	return header + "\n" + panels + "\n" + statusBar
}

func (m Model) renderHeader() string {
	title := " scamsim"
	if m.loaded != nil {
		title += " · " + m.loaded.Title
	}
	title = ansi.Truncate(title+" ", max(m.width-4, 1), "…")
	return m.styles.Header.
		Width(m.width).
		MaxWidth(m.width).
		Render(title)
}

func (m Model) renderStatusBar() string {
	s := m.styles
	sep := s.StatusValue.Render("  ")
	var parts []string
	add := func(k, desc string) {
		parts = append(parts, s.StatusKey.Render(k)+s.StatusValue.Render(" "+desc))
	}

	if m.loaded != nil {
		add(formatElapsed(m.elapsed), "")
		add(fmt.Sprintf("%d/%d", len(m.chat), len(m.loaded.Turns)), "turns")
		if m.running {
			add("▶", "auto")
		}
	}
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		add(h.Key, h.Desc)
	}
	line := strings.Join(parts, sep)
	if m.status != "" {
		line = s.StatusValue.Render(m.status) + sep + line
	}
	line = ansi.Truncate(line, max(m.width-2, 1), "")
	return s.StatusBar.
		Width(m.width).
		MaxWidth(m.width).
		Render(line)
}

// carouselHeight is the rendered height of the persona card, borders included.
const carouselHeight = 12

func (m Model) renderCarousel(w int) string {
	s := m.styles
	innerW := w - 4
	innerH := carouselHeight - 2

	if len(m.personas) == 0 {
		return s.CardActive.Width(w - 2).Height(innerH).Render(fitLines([]string{s.Dim.Render("no personas")}, innerW, innerH))
	}
	p := m.personas[m.personaIdx]

	var lines []string
	lines = append(lines, s.Dim.Render(fmt.Sprintf("‹ %d/%d ›", m.personaIdx+1, len(m.personas))))
	lines = append(lines, s.PanelTitle.Render(fmt.Sprintf("%s, %d", p.Name, p.Age)))
	lines = append(lines, s.Dim.Render(p.Location+" · "+p.Occupation))
	lines = append(lines, "")
	for _, t := range p.Traits {
		lines = append(lines, traitBar(t, innerW))
	}
	if len(p.Vulnerabilities) > 0 {
		lines = append(lines, s.IOCCategory.Render("at risk: ")+strings.Join(p.Vulnerabilities, ", "))
	}
	return s.CardActive.Width(w - 2).Height(innerH).Render(fitLines(lines, innerW, innerH))
}

// traitBar renders "name ██████░░░░ 6" fitted to w columns.
func traitBar(t scenario.Trait, w int) string {
	score := max(0, min(t.Score, 10))
	bar := strings.Repeat("█", score) + strings.Repeat("░", 10-score)
	name := ansi.Truncate(t.Name, max(w-14, 1), "…")
	pad := w - 14 - lipgloss.Width(name)
	if pad < 1 {
		pad = 1
	}
	return fmt.Sprintf("%s%s%s %d", name, strings.Repeat(" ", pad), bar, score)
}

func (m Model) renderScenarioList(w, h int) string {
	s := m.styles
	innerW := w - 4
	innerH := max(h-2, 1)

	lines := []string{s.PanelTitle.Render("Scenarios"), ""}
	if len(m.scenarios) == 0 {
		lines = append(lines, s.Dim.Render("none"))
	}
	for i, sc := range m.scenarios {
		label := ansi.Truncate(sc.Title, innerW-3, "…")
		if m.loaded != nil && m.loaded.ID == sc.ID {
			label += " ●"
		}
		if i == m.scenarioIdx {
			lines = append(lines, s.ListActive.Render(label))
		} else {
			lines = append(lines, s.ListItem.Render(label))
		}
	}
	if len(m.scenarios) > 0 {
		sc := m.scenarios[m.scenarioIdx]
		lines = append(lines, "", s.Dim.Render(sc.Category))
		lines = append(lines, wrap(sc.Description, innerW)...)
	}
	return s.Panel.Width(w - 2).Height(innerH).Render(fitLines(lines, innerW, innerH))
}

func (m Model) renderChat(w, h int) string {
	s := m.styles
	innerW := w - 4
	innerH := max(h-2, 1)

	if m.loaded == nil {
		msg := s.Dim.Render("Pick a persona with ←/→, a scenario with ↑/↓, then press enter.")
		return s.Panel.Width(w - 2).Height(innerH).Render(fitLines(wrap(msg, innerW), innerW, innerH))
	}

	var lines []string
	for _, c := range m.chat {
		lines = append(lines, s.Role(c.role).Render(m.speaker(c.role)))
		lines = append(lines, wrap(c.text, innerW)...)
		lines = append(lines, "")
	}
	switch {
	case m.typing:
		lines = append(lines, s.Typing.Render(m.speaker(scenario.RolePersona)+" is typing…"))
	case m.ended:
		lines = append(lines, s.Ended.Render("end of conversation"))
	case m.complete:
		lines = append(lines, s.Ended.Render("conversation complete"))
	case len(m.chat) == 0:
		lines = append(lines, s.Dim.Render("Press space to start."))
	}
	offset := max(len(lines)-innerH, 0)
	return s.Panel.Width(w - 2).Height(innerH).Render(fitLinesWithOffset(lines, innerW, innerH, offset))
}

func (m Model) renderEvidence(w, h int) string {
	s := m.styles
	innerW := w - 4
	innerH := max(h-2, 1)

	total := 0
	if m.loaded != nil {
		total = len(m.loaded.IOCs)
	}
	lines := []string{s.PanelTitle.Render(fmt.Sprintf("Evidence %d/%d", len(m.revealed), total)), ""}
	if len(m.revealed) == 0 {
		lines = append(lines, s.Dim.Render("nothing yet"))
	}
	for _, ioc := range m.revealed {
		lines = append(lines, s.IOCCategory.Render(ioc.Category))
		lines = append(lines, s.IOCValue.Render(ansi.Truncate(ioc.Value, innerW, "…")))
	}
	return s.Panel.Width(w - 2).Height(innerH).Render(fitLines(lines, innerW, innerH))
}

func (m Model) speaker(r scenario.Role) string {
	switch r {
	case scenario.RoleScammer:
		return "Scammer"
	case scenario.RolePersona:
		if m.loaded != nil {
			if p, err := m.catalog.Persona(m.loaded.Persona); err == nil {
				return p.Name
			}
		}
		return "Persona"
	default:
		return "System"
	}
}

func wrap(text string, w int) []string {
	if w < 1 {
		w = 1
	}
	return splitRenderableLines(lipgloss.NewStyle().Width(w).Render(text))
}

func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// fitLines truncates or pads lines to exactly w columns and h rows.
func fitLines(lines []string, w, h int) string {
	return fitLinesWithOffset(lines, w, h, 0)
}

func fitLinesWithOffset(lines []string, w, h, offset int) string {
	if offset < 0 {
		offset = 0
	}
	emptyLine := strings.Repeat(" ", w)
	result := make([]string, h)
	for i := 0; i < h; i++ {
		j := offset + i
		if j >= len(lines) {
			result[i] = emptyLine
			continue
		}
		line := lines[j]
		if parts := splitRenderableLines(line); len(parts) > 0 {
			line = parts[0]
		}
		line = ansi.Truncate(line, w, "")
		if pad := w - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		result[i] = line
	}
	return strings.Join(result, "\n")
}

func splitRenderableLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
