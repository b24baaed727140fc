package plant

import "github.com/san-kum/mechctl/internal/hal"

// Motor records the last normalized output it was commanded.
type Motor struct {
	Inverted bool
	value    float64
	writes   int
}

func NewMotor(inverted bool) *Motor {
	return &Motor{Inverted: inverted}
}

func (m *Motor) Set(value float64) {
	m.value = hal.Normalize(value)
	m.writes++
}

func (m *Motor) Stop() {
	m.value = 0
	m.writes++
}

// Value is the commanded output as seen by the shaft, after inversion.
func (m *Motor) Value() float64 {
	if m.Inverted {
		return -m.value
	}
	return m.value
}

// Command is the raw commanded output.
func (m *Motor) Command() float64 { return m.value }

// Writes counts Set and Stop calls.
func (m *Motor) Writes() int { return m.writes }
