package mechanism

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mechctl/internal/control"
)

var _ = Describe("Intake", func() {
	var rig *intakeRig

	BeforeEach(func() {
		rig = newIntakeRig()
	})

	It("rejects incomplete hardware", func() {
		_, err := NewIntake(intakeConfig(), IntakeHardware{})
		Expect(errors.Is(err, ErrMissingHardware)).To(BeTrue())
	})

	It("rejects an invalid controller config", func() {
		cfg := intakeConfig()
		cfg.Period = 0
		_, err := NewIntake(cfg, IntakeHardware{
			LeftAngle: rig.pivot.Left, RightAngle: rig.pivot.Right, Rollers: rig.rollers, Encoder: rig.pivot,
		})
		Expect(errors.Is(err, control.ErrInvalidConfig)).To(BeTrue())
	})

	It("starts stopped with zero output", func() {
		rig.run(10)
		Expect(rig.intake.Mode()).To(Equal(IntakeStopped))
		Expect(rig.pivot.Position()).To(BeZero())
		Expect(rig.pivot.Right.Command()).To(BeZero())
	})

	Context("tracking a setpoint", func() {
		It("converges and keeps the pivot motors mirrored", func() {
			rig.intake.SetSetpoint(5)
			rig.run(500)

			Expect(rig.pivot.Position()).To(BeNumerically("~", 5, 0.01))
			Expect(rig.pivot.MaxSkew()).To(BeZero())
			Expect(rig.intake.Output().Left).To(Equal(-rig.intake.Output().Right))
		})

		It("never commands beyond the safe output bound", func() {
			rig.intake.SetSetpoint(9)
			for k := 0; k < 200; k++ {
				rig.run(1)
				Expect(math.Abs(rig.intake.Output().Right)).To(BeNumerically("<=", 0.2))
			}
		})

		It("clamps an unreachable setpoint to the soft limit", func() {
			rig.intake.SetSetpoint(20)
			rig.run(1000)

			Expect(rig.pivot.Position()).To(BeNumerically("<=", 10))
			Expect(rig.intake.Setpoint()).To(Equal(10.0))
			Expect(rig.intake.Telemetry().Fault).To(Equal("unreachable_target"))
		})
	})

	Context("with a failed encoder", func() {
		It("zeroes output and recovers when the encoder returns", func() {
			rig.intake.SetSetpoint(5)
			rig.run(20)
			Expect(rig.intake.Output().Right).NotTo(BeZero())

			rig.pivot.FailEncoder(math.NaN())
			rig.run(1)
			Expect(rig.intake.Output()).To(Equal(control.Output{}))
			Expect(rig.intake.Fault()).To(Equal(control.FaultSensorOutOfRange))
			Expect(rig.intake.State().Integral).To(BeZero())
			Expect(rig.pivot.Right.Command()).To(BeZero())

			rig.pivot.RestoreEncoder()
			rig.run(500)
			Expect(rig.intake.Fault()).To(Equal(control.FaultNone))
			Expect(rig.pivot.Position()).To(BeNumerically("~", 5, 0.01))
		})

		It("zeroes manual output too", func() {
			rig.intake.SetAngleSpeed(0.2)
			rig.pivot.FailEncoder(40)
			rig.run(5)
			Expect(rig.intake.Output()).To(Equal(control.Output{}))
			Expect(rig.intake.Telemetry().Fault).To(Equal("sensor_out_of_range"))
		})
	})

	Context("driven manually", func() {
		It("stops at the upper soft limit", func() {
			rig.intake.SetAngleSpeed(1)
			rig.run(1000)

			Expect(rig.intake.Mode()).To(Equal(IntakeManual))
			Expect(rig.intake.Output().Right).To(BeZero())
			Expect(rig.pivot.Position()).To(BeNumerically(">=", 10))
			Expect(rig.pivot.Position()).To(BeNumerically("<", 10.5))
		})

		It("is still allowed to back away from the limit", func() {
			rig.intake.SetAngleSpeed(1)
			rig.run(1000)
			rig.intake.SetAngleSpeed(-1)
			rig.run(1)
			Expect(rig.intake.Output().Right).To(Equal(-0.2))
		})
	})

	It("runs and stops the rollers", func() {
		rig.intake.RunRollers(0.7)
		rig.intake.SetSetpoint(3)
		rig.run(5)
		Expect(rig.rollers.Command()).To(Equal(0.7))

		rig.intake.StopAll()
		rig.run(1)
		Expect(rig.intake.Mode()).To(Equal(IntakeStopped))
		Expect(rig.rollers.Command()).To(BeZero())
		Expect(rig.pivot.Left.Command()).To(BeZero())
		Expect(rig.pivot.Right.Command()).To(BeZero())
	})

	It("publishes telemetry for the last tick", func() {
		rig.intake.SetSetpoint(4)
		rig.run(3)
		snap := rig.intake.Telemetry()
		Expect(snap.Mechanism).To(Equal("intake"))
		Expect(snap.State).To(Equal("tracking"))
		Expect(snap.StateTicks).To(Equal(3))
		Expect(snap.Setpoint).To(Equal(4.0))
		Expect(snap.Position).To(Equal(rig.intake.Position()))
	})
})
