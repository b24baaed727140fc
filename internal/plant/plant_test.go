package plant

import (
	"math"
	"testing"
)

func TestEulerStep(t *testing.T) {
	a := NewLinearActuator(0.2, 0.5)
	x := Euler{}.Step(a, State{0.2}, Control{1}, 0.1)
	if math.Abs(x[0]-0.25) > 1e-12 {
		t.Errorf("expected 0.25, got %f", x[0])
	}
}

func TestMotorInversion(t *testing.T) {
	m := NewMotor(true)
	m.Set(0.4)
	if m.Value() != -0.4 || m.Command() != 0.4 {
		t.Errorf("expected inverted shaft output, got value=%v command=%v", m.Value(), m.Command())
	}
	m.Set(3)
	if m.Command() != 1 {
		t.Errorf("expected normalized command, got %v", m.Command())
	}
	m.Stop()
	if m.Value() != 0 || m.Writes() != 3 {
		t.Errorf("expected stopped after 3 writes, got value=%v writes=%d", m.Value(), m.Writes())
	}
}

func TestPivotMirroredDrive(t *testing.T) {
	p := NewPivot(0, 2, 0.01, -5, 15)
	p.Left.Set(-0.5)
	p.Right.Set(0.5)
	for i := 0; i < 100; i++ {
		p.Advance(0.02)
	}
	if p.Read() <= 0 {
		t.Errorf("expected forward motion, got %f", p.Read())
	}
	if p.MaxSkew() != 0 {
		t.Errorf("mirrored drive should not skew, got %f", p.MaxSkew())
	}
}

func TestPivotFightingMotors(t *testing.T) {
	p := NewPivot(3, 2, 0.01, -5, 15)
	p.Left.Set(0.5)
	p.Right.Set(0.5)
	p.Advance(0.02)
	if p.Read() != 3 {
		t.Errorf("fighting motors should not move, got %f", p.Read())
	}
	if p.MaxSkew() != 1 {
		t.Errorf("expected skew 1, got %f", p.MaxSkew())
	}
}

func TestPivotHardStops(t *testing.T) {
	p := NewPivot(14.9, 10, 0.001, -5, 15)
	p.Left.Set(-1)
	p.Right.Set(1)
	for i := 0; i < 50; i++ {
		p.Advance(0.02)
	}
	if p.Position() != 15 {
		t.Errorf("expected hard stop at 15, got %f", p.Position())
	}
}

func TestPivotEncoderFault(t *testing.T) {
	p := NewPivot(2, 2, 0.01, -5, 15)
	p.FailEncoder(math.NaN())
	if !math.IsNaN(p.Read()) {
		t.Error("expected NaN reading")
	}
	if p.Position() != 2 {
		t.Errorf("true position should be unaffected, got %f", p.Position())
	}
	p.RestoreEncoder()
	if p.Read() != 2 {
		t.Errorf("expected restored reading 2, got %f", p.Read())
	}
}

func TestLinearActuatorBounded(t *testing.T) {
	a := NewLinearActuator(0.9, 1)
	a.Set(1)
	for i := 0; i < 20; i++ {
		a.Advance(0.02)
	}
	if a.Read() != 1 {
		t.Errorf("expected full extension clamp, got %f", a.Read())
	}
	a.Set(-1)
	for i := 0; i < 100; i++ {
		a.Advance(0.02)
	}
	if a.Read() != 0 {
		t.Errorf("expected full retraction clamp, got %f", a.Read())
	}
}

func TestNoteFeedTripsBeam(t *testing.T) {
	wheel := NewFlywheel(10, 0.01)
	feed := NewNoteFeed(wheel, 1, 2)

	wheel.A.Set(0.5)
	wheel.B.Set(0.5)

	ticks := 0
	for !feed.Get() && ticks < 1000 {
		wheel.Advance(0.02)
		feed.Advance(0.02)
		ticks++
	}
	if !feed.Get() {
		t.Fatal("beam never tripped")
	}
	if ticks < 2 {
		t.Errorf("beam tripped implausibly fast: %d ticks", ticks)
	}

	for feed.Present() && ticks < 2000 {
		wheel.Advance(0.02)
		feed.Advance(0.02)
		ticks++
	}
	if feed.Fired() != 1 || feed.Get() {
		t.Errorf("expected note to leave, fired=%d blocked=%v", feed.Fired(), feed.Get())
	}

	feed.Insert()
	if !feed.Present() || feed.Get() {
		t.Error("inserted note should be present but not yet at the beam")
	}
}

func TestNoteFeedStuck(t *testing.T) {
	wheel := NewFlywheel(10, 0.01)
	feed := NewNoteFeed(wheel, 1, 2)
	feed.Stuck = true
	wheel.A.Set(1)
	wheel.B.Set(1)
	for i := 0; i < 500; i++ {
		wheel.Advance(0.02)
		feed.Advance(0.02)
	}
	if feed.Get() {
		t.Error("stuck note should never trip the beam")
	}
}
