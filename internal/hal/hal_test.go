package hal

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.5, 0.5},
		{-0.5, -0.5},
		{1.5, 1},
		{-3, -1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
		{math.Inf(-1), -1},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFuncAdapters(t *testing.T) {
	var p PositionSensor = PositionFunc(func() float64 { return 0.42 })
	if p.Read() != 0.42 {
		t.Errorf("expected 0.42, got %f", p.Read())
	}

	var b BinarySensor = BinaryFunc(func() bool { return true })
	if !b.Get() {
		t.Error("expected true")
	}
}

type recordingActuator struct {
	value   float64
	stopped int
}

func (r *recordingActuator) Set(v float64) { r.value = v }
func (r *recordingActuator) Stop()         { r.value = 0; r.stopped++ }

func TestTee(t *testing.T) {
	a, b := &recordingActuator{}, &recordingActuator{}
	tee := Tee{a, b}

	tee.Set(0.3)
	if a.value != 0.3 || b.value != 0.3 {
		t.Errorf("expected both at 0.3, got %f and %f", a.value, b.value)
	}

	tee.Stop()
	if a.stopped != 1 || b.stopped != 1 {
		t.Error("expected both actuators stopped once")
	}
}
