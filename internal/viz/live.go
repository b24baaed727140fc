package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mechctl/internal/config"
	"github.com/san-kum/mechctl/internal/scenario"
)

const (
	width           = 36
	height          = 14
	historyCapacity = 240
)

type TickMsg time.Time

// Model steps a bench through a scenario and renders it.
type Model struct {
	cfg  *config.Config
	sc   *scenario.Scenario
	opts []scenario.Option

	bench  *scenario.Bench
	canvas *Canvas
	err    error

	ticks    int
	total    int
	running  bool
	showHelp bool

	intakePos      []float64
	intakeSetpoint []float64
	elevation      []float64
}

// NewModel builds a bench from cfg and loads sc onto it.
func NewModel(cfg *config.Config, sc *scenario.Scenario, opts ...scenario.Option) (Model, error) {
	m := Model{cfg: cfg, sc: sc, opts: opts, canvas: NewCanvas(width, height), running: true}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	b, err := scenario.NewBench(m.cfg, m.opts...)
	if err != nil {
		return err
	}
	if err := b.Load(m.sc); err != nil {
		return err
	}
	m.bench = b
	m.ticks = 0
	m.total = m.sc.Ticks
	if m.total == 0 {
		m.total = m.cfg.Sim.Ticks
	}
	m.intakePos = m.intakePos[:0]
	m.intakeSetpoint = m.intakeSetpoint[:0]
	m.elevation = m.elevation[:0]
	return nil
}

// Bench is the bench currently being driven.
func (m Model) Bench() *scenario.Bench { return m.bench }

func (m Model) Ticks() int { return m.ticks }

func (m Model) Running() bool { return m.running }

func (m Model) Done() bool { return m.ticks >= m.total }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.PeriodDuration(), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "l":
			m.bench.Shooter.LoadNoteForAmp()
		case "a":
			m.bench.Shooter.ScoreInAmp()
		case "s":
			m.bench.Joint.Shoot(m.cfg.Shooter.SpeakerSpeed)
		case "up", "k":
			m.bench.Shooter.ElevateUp()
		case "down", "j":
			m.bench.Shooter.ElevateDown()
		case "x":
			m.bench.Joint.Stop()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

// step runs one tick unless the scenario has finished.
func (m *Model) step() {
	if m.Done() {
		return
	}
	m.bench.Step()
	m.ticks++

	m.intakePos = push(m.intakePos, m.bench.Intake.Position())
	m.intakeSetpoint = push(m.intakeSetpoint, m.bench.Intake.Setpoint())
	_, right := m.bench.Shooter.ActuatorPositions()
	m.elevation = push(m.elevation, right)
}

func push(hist []float64, v float64) []float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[1:]
	}
	return hist
}

// draw renders the intake arm on the left half of the canvas and the
// shooter elevation on the right.
func (m *Model) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()

	ic := m.cfg.Intake
	span := ic.UpperLimit - ic.LowerLimit
	frac := 0.0
	if span > 0 {
		frac = (m.bench.Pivot.Position() - ic.LowerLimit) / span
	}
	px, py := w/8, h-6
	m.canvas.Line(0, h-1, w/2-4, h-1)
	m.canvas.Fill(px-2, py, px+2, h-2)
	ex, ey := m.canvas.Arm(px, py, float64(w)/3, frac*math.Pi/2)
	m.canvas.Rect(ex-2, ey-2, ex+2, ey+2)

	sc := m.cfg.Shooter
	x0, x1 := w*5/8, w*7/8
	top, bottom := 2, h-2
	m.canvas.Rect(x0, top, x1, bottom)
	level := func(v float64) int { return bottom - int(v*float64(bottom-top)) }
	for _, bound := range []float64{sc.UpperTravel, sc.LowerTravel} {
		y := level(bound)
		for x := x0 - 3; x < x0; x++ {
			m.canvas.Set(x, y)
		}
	}
	_, right := m.bench.Shooter.ActuatorPositions()
	m.canvas.Fill(x0+2, level(right), x1-2, bottom)
	if m.bench.Shooter.IsNoteLoaded() {
		m.canvas.Rect(x1+3, top, x1+6, top+3)
	}
}

func (m Model) View() string {
	if m.err != nil {
		return faultStyle.Render("error: "+m.err.Error()) + "\n"
	}
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(m.sc.Name)) + "  ")
	switch {
	case m.Done():
		s.WriteString(statusDone.Render("DONE"))
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING"))
	default:
		s.WriteString(statusPaused.Render("PAUSED"))
	}
	s.WriteString(fmt.Sprintf("  %d/%d\n\n", m.ticks, m.total))

	in := m.bench.Intake
	s.WriteString(sectionStyle.Render("INTAKE") + "\n")
	row(&s, "Mode", in.Mode().String())
	row(&s, "Position", fmt.Sprintf("%.3f", in.Position()))
	row(&s, "Setpoint", fmt.Sprintf("%.3f", in.Setpoint()))
	s.WriteString(labelStyle.Render("Output") + outputBar(in.Output().Right, 20) + "\n")
	if f := in.Fault(); f.Err() != nil {
		s.WriteString(labelStyle.Render("Fault") + faultStyle.Render(f.String()) + "\n")
	}

	sh := m.bench.Shooter
	left, right := sh.ActuatorPositions()
	s.WriteString("\n" + sectionStyle.Render("SHOOTER") + "\n")
	row(&s, "Elevation", sh.Elevation().Phase.String())
	row(&s, "Actuators", fmt.Sprintf("%.3f / %.3f", left, right))
	row(&s, "Loader", sh.Load().Phase.String())
	row(&s, "Note", fmt.Sprintf("%t", sh.IsNoteLoaded()))
	s.WriteString(labelStyle.Render("Flywheel") + outputBar(sh.FlywheelOutput(), 20) + "\n")

	if len(m.intakePos) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.intakePos, m.intakeSetpoint},
			asciigraph.Height(5), asciigraph.Width(34), asciigraph.Precision(1),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption("intake position / setpoint"))
		s.WriteString("\n" + graphStyle.Render(chart) + "\n")
		chart = asciigraph.Plot(m.elevation,
			asciigraph.Height(3), asciigraph.Width(34), asciigraph.Precision(2),
			asciigraph.Caption("shooter elevation"))
		s.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}
	s.WriteString("\n" + keyHint.Render("SP:Pause N:Step R:Restart ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

func row(s *strings.Builder, label, value string) {
	s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
}

const helpText = `
  Space   pause / resume
  N       single tick while paused
  R       restart the scenario
  L       load a note
  A       score in amp
  S       hand off and shoot into speaker
  Up/K    elevate to upper bound
  Down/J  elevate to lower bound
  X       stop rollers and flywheel
  Q       quit
`
