package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mechctl/internal/config"
	"github.com/san-kum/mechctl/internal/scenario"
)

func newModel(t *testing.T, name string) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	sc, err := scenario.Builtin(name, cfg)
	require.NoError(t, err)
	m, err := NewModel(cfg, sc)
	require.NoError(t, err)
	return m
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTickStepsBench(t *testing.T) {
	m := newModel(t, "intake-seek")
	for i := 0; i < 10; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	assert.Equal(t, 10, m.Ticks())
	assert.Equal(t, 10, m.Bench().Executor.TickCount())
	assert.Len(t, m.intakePos, 10)
	assert.Greater(t, m.Bench().Pivot.Position(), 0.0)
}

func TestPauseAndSingleStep(t *testing.T) {
	m := newModel(t, "intake-seek")
	m = update(m, key(" "))
	assert.False(t, m.Running())

	m = update(m, TickMsg(time.Now()))
	assert.Zero(t, m.Ticks())

	m = update(m, key("n"))
	assert.Equal(t, 1, m.Ticks())
	assert.Contains(t, m.View(), "PAUSED")
}

func TestStopsAtScenarioEnd(t *testing.T) {
	m := newModel(t, "load")
	for i := 0; i < 250; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	assert.True(t, m.Done())
	assert.Equal(t, 200, m.Ticks())
	assert.Contains(t, m.View(), "DONE")
}

func TestRestart(t *testing.T) {
	m := newModel(t, "intake-seek")
	first := m.Bench()
	for i := 0; i < 5; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	m = update(m, key("r"))
	assert.NotSame(t, first, m.Bench())
	assert.Zero(t, m.Ticks())
	assert.Empty(t, m.intakePos)
}

func TestManualCommands(t *testing.T) {
	m := newModel(t, "load")
	m = update(m, key("up"))
	m = update(m, TickMsg(time.Now()))
	assert.Equal(t, "raising", m.Bench().Shooter.Elevation().Phase.String())

	m = update(m, key("a"))
	m = update(m, TickMsg(time.Now()))
	assert.Equal(t, 0.5, m.Bench().Shooter.FlywheelOutput())

	m = update(m, key("x"))
	m = update(m, TickMsg(time.Now()))
	assert.Zero(t, m.Bench().Shooter.FlywheelOutput())
}

func TestQuit(t *testing.T) {
	m := newModel(t, "intake-seek")
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView(t *testing.T) {
	m := newModel(t, "intake-fault")
	for i := 0; i < 45; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	v := m.View()
	assert.Contains(t, v, "INTAKE-FAULT")
	assert.Contains(t, v, "sensor_out_of_range")
	assert.Contains(t, v, "intake position / setpoint")

	m = update(m, key("?"))
	assert.True(t, strings.Contains(m.View(), "single tick while paused"))
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(4, 2)
	w, h := c.Dots()
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)

	c.Set(0, 0)
	c.Set(-1, 3)
	c.Set(100, 100)
	assert.Equal(t, '⠁', []rune(c.String())[0])

	c.Clear()
	c.Line(0, 0, 7, 0)
	rows := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "⠉⠉⠉⠉", rows[0])
	assert.Equal(t, "⠀⠀⠀⠀", rows[1])

	c.Clear()
	x, y := c.Arm(0, 7, 4, 0)
	assert.Equal(t, 4, x)
	assert.Equal(t, 7, y)
}

func TestOutputBar(t *testing.T) {
	assert.Contains(t, outputBar(1, 10), "█████")
	assert.NotContains(t, outputBar(0, 10), "█")
	assert.Contains(t, outputBar(-0.4, 10), "██│")
}
