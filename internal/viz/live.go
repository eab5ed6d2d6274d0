package viz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 300
	dtStep          = 0.001
)

type TickMsg time.Time

// Model drives an engine from the Bubble Tea loop: every tick message runs
// Engine.Step once, so pausing and single stepping go through the engine's
// own run state.
type Model struct {
	engine   *sim.Engine
	scene    string
	interval time.Duration
	theme    Theme

	canvas   *Canvas
	camera   *Camera
	box      *Wireframe
	obstacle *Wireframe
	rho0     float64

	densityErr    *metrics.DensityError
	energy        *metrics.KineticEnergy
	errHistory    []float64
	energyHistory []float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int

	status   string
	lastErr  error
	showHelp bool
}

// NewModel builds a live view of e. tickRate is the number of steps
// attempted per second.
func NewModel(e *sim.Engine, scene string, tickRate float64) Model {
	if tickRate <= 0 {
		tickRate = 60
	}
	domain := e.Domain()
	params := e.Params()

	cam := NewCamera()
	cam.Fit(domain.Extents)

	m := Model{
		engine:        e,
		scene:         scene,
		interval:      time.Duration(float64(time.Second) / tickRate),
		theme:         ThemeOcean,
		canvas:        NewCanvas(width, height),
		camera:        cam,
		box:           BoxWireframe(domain.Extents),
		rho0:          params.RestDensity,
		densityErr:    metrics.NewDensityError(params.RestDensity),
		energy:        metrics.NewKineticEnergy(params.Mass),
		errHistory:    make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		params:        e.GetParams(),
		initialParams: e.GetParams(),
	}
	if domain.Obstacle != nil {
		m.obstacle = SphereWireframe(*domain.Obstacle, 24)
	}
	for k := range m.params {
		if k == "dt" || k == "smoothing_radius" {
			continue
		}
		m.paramKeys = append(m.paramKeys, k)
	}
	sort.Strings(m.paramKeys)
	return m
}

// WithTheme returns m using the named theme.
func (m Model) WithTheme(name string) Model {
	m.theme = GetTheme(name)
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		m.step()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.lastErr = nil
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.engine.SetPaused(!m.engine.Paused())
	case "n":
		m.setErr(m.engine.RequestSingleStep())
	case "[":
		_, err := m.engine.AdjustTimestep(-dtStep)
		m.setErr(err)
	case "]":
		_, err := m.engine.AdjustTimestep(dtStep)
		m.setErr(err)
	case "tab":
		if len(m.paramKeys) > 0 {
			m.selected = (m.selected + 1) % len(m.paramKeys)
		}
	case "up", "k":
		m.adjustParam(1.05)
	case "down", "j":
		m.adjustParam(0.95)
	case "left":
		m.camera.Orbit(-0.1, 0)
	case "right":
		m.camera.Orbit(0.1, 0)
	case "h":
		m.camera.Orbit(0, -0.1)
	case "l":
		m.camera.Orbit(0, 0.1)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	case "t":
		m.theme = NextTheme(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) setErr(err error) {
	m.lastErr = err
	if errors.Is(err, fluid.ErrNotPaused) {
		m.lastErr = nil
		m.status = "pause first (space)"
	}
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if val == 0 {
		val = 1e-3 * factor
	}
	if err := m.engine.SetParam(key, val); err != nil {
		m.setErr(err)
		return
	}
	m.params[key] = val
	m.status = fmt.Sprintf("%s = %.4g", key, val)
}

// step advances the engine once and records the frame's diagnostics.
func (m *Model) step() {
	stepped, err := m.engine.Step()
	if err != nil {
		m.setErr(err)
		return
	}
	if !stepped {
		return
	}
	m.engine.View(func(f sim.Frame) {
		m.densityErr.Observe(f.Particles, f.Time)
		m.energy.Observe(f.Particles, f.Time)
	})
	m.errHistory = appendCapped(m.errHistory, m.densityErr.Value())
	m.energyHistory = appendCapped(m.energyHistory, m.energy.Value())
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Model) draw() {
	m.canvas.Clear()
	RenderWireframe(m.canvas, m.box, m.camera)
	if m.obstacle != nil {
		RenderWireframe(m.canvas, m.obstacle, m.camera)
	}
	m.engine.View(func(f sim.Frame) {
		RenderParticles(m.canvas, f.Particles, m.camera, m.rho0)
	})
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.Render(m.theme))

	paused := m.engine.Paused()
	status := "RUNNING"
	if paused {
		status = "PAUSED"
	}
	params := m.engine.Params()
	perf := m.engine.Perf()

	var s strings.Builder
	s.WriteString(headerStyle(m.theme).Render(strings.ToUpper(m.scene)+" · "+params.Mode.String()) + "\n")
	s.WriteString(statusStyle(m.theme, paused).Render(status) + "\n\n")

	if len(m.errHistory) > 1 {
		chart := asciigraph.Plot(m.errHistory,
			asciigraph.Height(4),
			asciigraph.Width(30),
			asciigraph.Precision(3),
			asciigraph.Caption("Density error"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Tick", fmt.Sprintf("%d", m.engine.Tick()))
	row("Time", fmt.Sprintf("%.3fs", m.engine.Time()))
	row("dt", fmt.Sprintf("%.4f", params.Dt))
	row("Particles", fmt.Sprintf("%d", m.engine.Len()))
	row("Ticks/s", fmt.Sprintf("%.1f", perf.TicksPerSecond))
	row("Energy", SparklineChart(m.energyHistory, 24))
	if r := m.engine.Residuals(); len(r) > 0 {
		row("Residual", fmt.Sprintf("%.4f → %.4f", r[0], r[len(r)-1]))
	}

	s.WriteString("\nPARAMETERS\n")
	active := lipgloss.NewStyle().Foreground(m.theme.Accent).Bold(true)
	for i, k := range m.paramKeys {
		val, initial := m.params[k], m.initialParams[k]
		ratio := 0.5
		if initial != 0 {
			ratio = val / (2 * initial)
		}
		line := fmt.Sprintf("%-15s %s %.3g", k, ProgressBar(ratio, 8), val)
		if i == m.selected {
			s.WriteString(active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.UnsetWidth().Render(line) + "\n")
		}
	}

	if m.lastErr != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(m.theme.Error).Render(m.lastErr.Error()) + "\n")
	} else if m.status != "" {
		s.WriteString("\n" + valueStyle.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause N:Step [ ]:dt Q:Quit\nTab:Param ↑↓:Tune T:Theme ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return panelStyle.Render(helpText) + "\n" + mainView
	}
	return mainView
}

const helpText = `KEYBOARD SHORTCUTS
  Space     Pause/Resume
  N         Single step (paused only)
  [ ]       Shrink/grow dt until resume
  Tab       Cycle parameters
  Up/K      Increase parameter (+5%)
  Down/J    Decrease parameter (-5%)
  ← →       Orbit camera
  H L       Tilt camera
  + -       Zoom
  T         Cycle themes
  ?         Toggle this help
  Q         Quit`

// Run opens the live view full screen and blocks until the user quits.
func Run(e *sim.Engine, scene string, tickRate float64, theme string) error {
	p := tea.NewProgram(NewModel(e, scene, tickRate).WithTheme(theme), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
