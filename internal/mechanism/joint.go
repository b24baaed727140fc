package mechanism

import (
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mechctl/internal/hal"
)

// Joint runs routines that span the intake and the shooter.
type Joint struct {
	Intake  *Intake
	Shooter *Shooter
}

func NewJoint(intake *Intake, shooter *Shooter) *Joint {
	return &Joint{Intake: intake, Shooter: shooter}
}

// Shoot hands the note from the intake to the shooter: the intake rollers
// run backwards while the flywheel runs forwards at the same speed.
func (j *Joint) Shoot(speed float64) {
	speed = hal.Normalize(speed)
	log.WithField("speed", speed).Debug("shoot")
	j.Intake.RunRollers(-speed)
	j.Shooter.RunFlywheel(speed)
}

// Stop halts the rollers and the flywheel. Pivot and elevation keep their
// current commands.
func (j *Joint) Stop() {
	j.Intake.RunRollers(0)
	j.Shooter.StopFlywheel()
}
