package viz

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/sim"
)

var presetInfo = map[string]string{
	"dam_break":  "block of fluid released into a box",
	"drop":       "column falling onto a sphere",
	"pbf_column": "position based column settling",
	"tiny":       "512 particles, serial backend",
}

// picker lists the presets and hands over to a live Model once one is
// chosen.
type picker struct {
	presets []string
	cursor  int
	theme   Theme
	logger  *slog.Logger
	live    *Model
	err     error
}

func newPicker(theme string, logger *slog.Logger) picker {
	return picker{presets: config.ListPresets(), theme: GetTheme(theme), logger: logger}
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		next, cmd := p.live.Update(msg)
		live := next.(Model)
		p.live = &live
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		p.cursor = (p.cursor - 1 + len(p.presets)) % len(p.presets)
	case "down", "j":
		p.cursor = (p.cursor + 1) % len(p.presets)
	case "enter":
		name := p.presets[p.cursor]
		cfg := config.GetPreset(name)
		e, err := sim.New(cfg, sim.WithLogger(p.logger))
		if err != nil {
			p.err = err
			return p, nil
		}
		live := NewModel(e, name, cfg.TickRate)
		live.theme = p.theme
		p.live = &live
		return p, live.Init()
	}
	return p, nil
}

func (p picker) View() string {
	if p.live != nil {
		return p.live.View()
	}

	var s strings.Builder
	s.WriteString(headerStyle(p.theme).Render("FLUIDSIM") + "\n")
	selected := lipgloss.NewStyle().Foreground(p.theme.Accent).Bold(true)
	for i, name := range p.presets {
		line := fmt.Sprintf("%-12s %s", name, presetInfo[name])
		if i == p.cursor {
			s.WriteString(selected.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}
	if p.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(p.theme.Error).Render(p.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("↑↓:Select Enter:Start Q:Quit"))
	return panelStyle.Render(s.String())
}

// RunInteractive shows the preset menu and then the live view of the
// chosen scene.
func RunInteractive(theme string, logger *slog.Logger) error {
	final, err := tea.NewProgram(newPicker(theme, logger), tea.WithAltScreen()).Run()
	if p, ok := final.(picker); ok && p.live != nil {
		p.live.engine.Close()
	}
	return err
}
