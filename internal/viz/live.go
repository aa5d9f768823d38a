package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/obslab/internal/sim"
)

const (
	chartWidth   = 70
	chartHeight  = 12
	portraitCols = 48
	portraitRows = 16
	historyCap   = 600
	maxSpeed     = 64
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	chartStyle  = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

type chartMode int

const (
	chartPosition chartMode = iota
	chartPhase
)

// Model drives one Stepper from the bubbletea event loop: each tick takes
// speed samples and appends them to bounded history buffers. Divergence or
// running out of steps freezes the view; the history stays on screen.
type Model struct {
	sim       *sim.Simulator
	stepper   *sim.Stepper
	stiffness float64
	mass      float64
	damping   float64

	last       sim.Sample
	haveSample bool
	position   []float64
	estimate   []float64
	errNorm    []float64
	samples    []sim.Sample

	mode    chartMode
	running bool
	speed   int
	err     error
}

func NewModel(s *sim.Simulator, stiffness, mass, damping float64) Model {
	return Model{
		sim:       s,
		stepper:   s.Stepper(),
		stiffness: stiffness,
		mass:      mass,
		damping:   damping,
		position:  make([]float64, 0, historyCap),
		estimate:  make([]float64, 0, historyCap),
		errNorm:   make([]float64, 0, historyCap),
		samples:   make([]sim.Sample, 0, historyCap),
		running:   true,
		speed:     1,
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil && !m.stepper.Done() {
				m.running = !m.running
			}
		case "tab":
			if m.mode == chartPosition {
				m.mode = chartPhase
			} else {
				m.mode = chartPosition
			}
		case "r":
			m.reset()
		case "+", "=":
			if m.speed < maxSpeed {
				m.speed *= 2
			}
		case "-", "_":
			if m.speed > 1 {
				m.speed /= 2
			}
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.speed; i++ {
		if m.stepper.Done() {
			m.running = false
			return
		}
		sample, err := m.stepper.Next()
		m.record(sample)
		if err != nil {
			m.err = err
			m.running = false
			return
		}
	}
}

func (m *Model) record(s sim.Sample) {
	m.last = s
	m.haveSample = true
	m.position = trim(append(m.position, s.X[0]))
	m.estimate = trim(append(m.estimate, s.Xhat[0]))
	m.errNorm = trim(append(m.errNorm, s.X.Sub(s.Xhat).Norm()))
	m.samples = append(m.samples, s)
	if len(m.samples) > historyCap {
		m.samples = m.samples[1:]
	}
}

func trim(s []float64) []float64 {
	if len(s) > historyCap {
		return s[1:]
	}
	return s
}

func (m *Model) reset() {
	m.stepper = m.sim.Stepper()
	m.position = m.position[:0]
	m.estimate = m.estimate[:0]
	m.errNorm = m.errNorm[:0]
	m.samples = m.samples[:0]
	m.haveSample = false
	m.err = nil
	m.running = true
}

func (m Model) View() string {
	var chart string
	if m.mode == chartPhase {
		chart = m.phaseView()
	} else {
		chart = m.positionView()
	}

	status := "RUNNING"
	switch {
	case m.err != nil:
		status = fmt.Sprintf("DIVERGED: %v", m.err)
	case m.stepper.Done():
		status = "COMPLETE"
	case !m.running:
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("SPRING MASS OBSERVER") + "\n")
	s.WriteString(statusStyle.Render(status) + "\n\n")
	if m.haveSample {
		last := m.last
		s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", last.Time)) + "\n")
		s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d/%d", last.Step+1, m.sim.Config().Steps)) + "\n")
		s.WriteString(labelStyle.Render("y") + valueStyle.Render(fmt.Sprintf("%+.4f", last.X[0])) + "\n")
		s.WriteString(labelStyle.Render("yhat") + valueStyle.Render(fmt.Sprintf("%+.4f", last.Xhat[0])) + "\n")
		s.WriteString(labelStyle.Render("residual") + valueStyle.Render(fmt.Sprintf("%+.4f", last.Residual[0])) + "\n")
		s.WriteString(labelStyle.Render("error norm") + valueStyle.Render(fmt.Sprintf("%.4f", m.errNorm[len(m.errNorm)-1])) + "\n")
		s.WriteString(labelStyle.Render("energy") + valueStyle.Render(fmt.Sprintf("%.4f", m.energy(last.X))) + "\n")
	}
	s.WriteString(labelStyle.Render("model") + valueStyle.Render(fmt.Sprintf("k=%.2f m=%.2f b=%.2f", m.stiffness, m.mass, m.damping)) + "\n")
	s.WriteString(labelStyle.Render("speed") + valueStyle.Render(fmt.Sprintf("%d step/frame", m.speed)) + "\n")
	s.WriteString(helpStyle.Render("SP:Pause TAB:View R:Reset +/-:Speed Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, chartStyle.Render(chart), statsStyle.Render(s.String()))
}

func (m Model) positionView() string {
	if len(m.position) < 2 {
		return "collecting samples..."
	}
	return Overlay(
		[][]float64{m.position, m.estimate},
		[]string{"true", "estimated"},
		chartWidth, chartHeight,
	)
}

func (m Model) phaseView() string {
	c := NewCanvas(portraitCols, portraitRows, PhaseMin, PhaseMax, PhaseMin, PhaseMax)
	c.Axes()
	for i := 1; i < len(m.samples); i++ {
		a, b := m.samples[i-1].X, m.samples[i].X
		if c.Contains(a[0], a[1]) && c.Contains(b[0], b[1]) {
			c.Segment(a[0], a[1], b[0], b[1])
		}
	}
	for _, s := range m.samples {
		c.Mark(s.Xhat[0], s.Xhat[1])
	}
	return c.String() + "phase space trajectory"
}

func (m Model) energy(x sim.State) float64 {
	if len(x) < 2 {
		return 0
	}
	return 0.5*m.mass*x[1]*x[1] + 0.5*m.stiffness*x[0]*x[0]
}
