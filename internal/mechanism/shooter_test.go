package mechanism

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mechctl/internal/control"
)

var _ = Describe("Shooter", func() {
	Describe("elevation", func() {
		It("moves both actuators to a target and idles", func() {
			rig := newShooterRig(0.2)
			rig.shooter.SetElevation(0.6)
			rig.run(100)

			Expect(rig.right.Position()).To(BeNumerically("~", 0.6, 0.02))
			Expect(rig.shooter.Elevation().Phase).To(Equal(control.ElevationIdle))
			Expect(rig.right.Command()).To(BeZero())
		})

		It("holds at the upper travel bound when asked to go all the way up", func() {
			rig := newShooterRig(0.2)
			rig.shooter.ElevateUp()
			rig.run(200)

			Expect(rig.shooter.Elevation().Phase).To(Equal(control.HoldingAtLimit))
			Expect(rig.right.Position()).To(BeNumerically(">=", 0.75))
			Expect(rig.right.Position()).To(BeNumerically("<=", 0.76))
			Expect(rig.shooter.ElevationOutput()).To(Equal(control.Output{}))
		})

		It("holds at the lower travel bound when asked to go all the way down", func() {
			rig := newShooterRig(0.5)
			rig.shooter.ElevateDown()
			rig.run(200)

			Expect(rig.shooter.Elevation().Phase).To(Equal(control.HoldingAtLimit))
			Expect(rig.right.Position()).To(BeNumerically("<=", 0.1))
			Expect(rig.right.Position()).To(BeNumerically(">=", 0.09))
		})

		It("jogs within the travel bounds", func() {
			rig := newShooterRig(0.4)
			rig.shooter.Raise()
			rig.run(200)
			Expect(rig.right.Position()).To(BeNumerically("<=", 0.76))
			Expect(rig.right.Command()).To(BeZero())

			rig.shooter.Lower()
			rig.run(200)
			Expect(rig.right.Position()).To(BeNumerically(">=", 0.09))
			Expect(rig.right.Command()).To(BeZero())
		})

		It("stops on request", func() {
			rig := newShooterRig(0.2)
			rig.shooter.ElevateUp()
			rig.run(10)
			rig.shooter.StopElevation()
			rig.run(1)
			Expect(rig.shooter.Elevation().Phase).To(Equal(control.ElevationIdle))
			Expect(rig.left.Command()).To(BeZero())
			Expect(rig.right.Command()).To(BeZero())
		})

		It("zeroes output on a bad position reading", func() {
			rig := newShooterRig(0.2)
			rig.right.FailSensor(math.NaN())
			rig.shooter.SetElevation(0.6)
			rig.run(10)

			Expect(rig.shooter.Elevation().Phase).To(Equal(control.HoldingAtLimit))
			Expect(rig.shooter.Elevation().Fault).To(Equal(control.FaultSensorOutOfRange))
			Expect(rig.right.Position()).To(Equal(0.2))
		})
	})

	Describe("loading", func() {
		It("feeds until the beam break trips, then stops the flywheel", func() {
			rig := newShooterRig(0.2)
			rig.shooter.LoadNoteForAmp()
			rig.run(1)
			Expect(rig.shooter.Load().Phase).To(Equal(control.Loading))
			Expect(rig.flywheel.A.Command()).To(Equal(0.5))

			for k := 0; k < 20 && rig.shooter.Load().Phase != control.LoadComplete; k++ {
				rig.run(1)
			}
			Expect(rig.shooter.Load().Phase).To(Equal(control.LoadComplete))
			Expect(rig.shooter.IsNoteLoaded()).To(BeTrue())
			Expect(rig.flywheel.A.Command()).To(BeZero())
			Expect(rig.flywheel.B.Command()).To(BeZero())
			Expect(rig.feed.Present()).To(BeTrue())

			rig.run(10)
			Expect(rig.feed.Fired()).To(BeZero())
		})

		It("unloads exactly like it loads", func() {
			load := newShooterRig(0.2)
			unload := newShooterRig(0.2)
			load.shooter.LoadNoteForAmp()
			unload.shooter.UnloadNoteForSpeaker()

			for k := 0; k < 30; k++ {
				load.run(1)
				unload.run(1)
				Expect(unload.shooter.FlywheelOutput()).To(Equal(load.shooter.FlywheelOutput()))
				Expect(unload.shooter.IsNoteLoaded()).To(Equal(load.shooter.IsNoteLoaded()))
			}
			Expect(unload.shooter.Load().Phase).To(Equal(control.LoadComplete))
		})

		It("exposes a stall as a growing tick count", func() {
			rig := newShooterRig(0.2)
			rig.feed.Stuck = true
			rig.shooter.LoadNoteForAmp()
			rig.run(100)

			Expect(rig.shooter.Load().Phase).To(Equal(control.Loading))
			snap := rig.shooter.Loader().Telemetry()
			Expect(snap.State).To(Equal("loading"))
			Expect(snap.StateTicks).To(Equal(100))
			Expect(snap.Output).To(Equal(0.5))
		})

		It("gives the flywheel up to a direct command", func() {
			rig := newShooterRig(0.2)
			rig.feed.Stuck = true
			rig.shooter.LoadNoteForAmp()
			rig.run(3)
			rig.shooter.RunFlywheel(0.8)
			Expect(rig.shooter.Load().Phase).To(Equal(control.LoadIdle))
			rig.run(1)
			Expect(rig.flywheel.A.Command()).To(Equal(0.8))
		})

		It("cancels on request", func() {
			rig := newShooterRig(0.2)
			rig.feed.Stuck = true
			rig.shooter.LoadNoteForAmp()
			rig.run(3)
			rig.shooter.CancelLoad()
			rig.run(1)
			Expect(rig.shooter.Load().Phase).To(Equal(control.LoadIdle))
			Expect(rig.flywheel.A.Command()).To(BeZero())
		})
	})

	Describe("scoring", func() {
		It("fires a loaded note into the speaker", func() {
			rig := newShooterRig(0.2)
			rig.shooter.LoadNoteForAmp()
			rig.run(20)
			Expect(rig.shooter.Load().Phase).To(Equal(control.LoadComplete))

			rig.shooter.ScoreInSpeaker()
			rig.run(20)
			Expect(rig.flywheel.A.Command()).To(Equal(1.0))
			Expect(rig.feed.Fired()).To(Equal(1))
			Expect(rig.shooter.IsNoteLoaded()).To(BeFalse())
		})

		It("runs at half speed for the amp", func() {
			rig := newShooterRig(0.2)
			rig.shooter.ScoreInAmp()
			rig.run(1)
			Expect(rig.shooter.FlywheelOutput()).To(Equal(0.5))

			rig.shooter.StopFlywheel()
			rig.run(1)
			Expect(rig.flywheel.A.Command()).To(BeZero())
		})
	})

	It("reports actuator positions and flywheel output", func() {
		rig := newShooterRig(0.3)
		rig.shooter.ScoreInAmp()
		rig.run(1)
		snap := rig.shooter.Telemetry()
		Expect(snap.Mechanism).To(Equal("shooter"))
		Expect(snap.Value("actuator_left")).To(Equal(0.3))
		Expect(snap.Value("actuator_right")).To(Equal(0.3))
		Expect(snap.Value("flywheel")).To(Equal(0.5))
	})
})

var _ = Describe("Joint", func() {
	It("hands the note from intake to shooter", func() {
		irig := newIntakeRig()
		srig := newShooterRig(0.2)
		joint := NewJoint(irig.intake, srig.shooter)

		joint.Shoot(1)
		irig.run(1)
		srig.run(1)
		Expect(irig.rollers.Command()).To(Equal(-1.0))
		Expect(srig.flywheel.A.Command()).To(Equal(1.0))

		joint.Stop()
		irig.run(1)
		srig.run(1)
		Expect(irig.rollers.Command()).To(BeZero())
		Expect(srig.flywheel.A.Command()).To(BeZero())
	})
})
