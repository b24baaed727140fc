package hal

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"
)

const (
	// servo-style PWM: 50Hz frame, 1µs resolution
	pwmCycleLen   = 20000
	pwmClockHz    = 50 * pwmCycleLen
	pwmNeutralUs  = 1500
	pwmHalfSpanUs = 500
)

// OpenGPIO memory-maps the Raspberry Pi GPIO block. Call CloseGPIO on exit.
func OpenGPIO() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open gpio: %w (are you running on a Raspberry Pi?)", err)
	}
	log.Debug("gpio memory mapped")
	return nil
}

// CloseGPIO releases the GPIO mapping.
func CloseGPIO() error {
	return rpio.Close()
}

// BeamBreak is a note detector wired to a GPIO input. Most IR break-beam
// receivers pull the line low when the beam is interrupted, so ActiveLow is
// the usual setting.
type BeamBreak struct {
	pin       rpio.Pin
	activeLow bool
}

// NewBeamBreak configures pin (BCM numbering) as a pulled-up input.
func NewBeamBreak(pin int, activeLow bool) *BeamBreak {
	p := rpio.Pin(pin)
	p.Input()
	p.PullUp()
	return &BeamBreak{pin: p, activeLow: activeLow}
}

// Get reports whether the beam is broken.
func (b *BeamBreak) Get() bool {
	high := b.pin.Read() == rpio.High
	if b.activeLow {
		return !high
	}
	return high
}

// PWMActuator drives a motor controller that accepts RC servo pulses
// (1000-2000µs, 1500µs neutral) from one of the hardware PWM pins.
type PWMActuator struct {
	pin      rpio.Pin
	inverted bool
	value    float64
}

// NewPWMActuator configures pin for hardware PWM and commands neutral.
func NewPWMActuator(pin int, inverted bool) *PWMActuator {
	p := rpio.Pin(pin)
	p.Pwm()
	p.Freq(pwmClockHz)
	a := &PWMActuator{pin: p, inverted: inverted}
	a.Stop()
	return a
}

func (a *PWMActuator) Set(value float64) {
	value = Normalize(value)
	if a.inverted {
		value = -value
	}
	a.value = value
	pulse := uint32(pwmNeutralUs + value*pwmHalfSpanUs)
	a.pin.DutyCycle(pulse, pwmCycleLen)
}

func (a *PWMActuator) Stop() {
	a.value = 0
	a.pin.DutyCycle(pwmNeutralUs, pwmCycleLen)
}

// Value returns the last commanded output after inversion.
func (a *PWMActuator) Value() float64 { return a.value }
