package control

import "fmt"

// LoadPhase is the load sequencer's phase.
type LoadPhase int

const (
	LoadIdle LoadPhase = iota
	Loading
	Unloading
	LoadComplete
)

func (p LoadPhase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Unloading:
		return "unloading"
	case LoadComplete:
		return "complete"
	default:
		return "idle"
	}
}

// Active reports whether the phase is still waiting on the note detector.
func (p LoadPhase) Active() bool {
	return p == Loading || p == Unloading
}

type LoadConfig struct {
	// FeedSpeed is the shooter output while waiting for the note.
	FeedSpeed float64
}

func (c LoadConfig) Validate() error {
	if c.FeedSpeed < -1 || c.FeedSpeed > 1 || c.FeedSpeed == 0 {
		return fmt.Errorf("%w: feed speed must be non-zero within [-1, 1], got %f", ErrInvalidConfig, c.FeedSpeed)
	}
	return nil
}

// LoadState is owned by one LoadSequencer. Ticks counts steps spent in the
// current phase; a sequence that never sees the note keeps counting, which
// is how a stall shows up in telemetry.
type LoadState struct {
	Phase        LoadPhase
	NoteDetected bool
	Ticks        int
}

// LoadSequencer feeds a note into the shooter until the beam break trips.
//
// Unloading currently has the same trigger and polarity as Loading. The two
// are kept as distinct operations so callers state their intent.
type LoadSequencer struct {
	cfg LoadConfig
}

func NewLoadSequencer(cfg LoadConfig) (*LoadSequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LoadSequencer{cfg: cfg}, nil
}

// Config returns the sequencer's configuration.
func (s *LoadSequencer) Config() LoadConfig { return s.cfg }

// Load arms a loading sequence. Re-arms from Complete; a sequence already
// loading is left alone.
func (s *LoadSequencer) Load(st LoadState) LoadState {
	return s.arm(Loading, st)
}

// Unload arms an unloading sequence.
func (s *LoadSequencer) Unload(st LoadState) LoadState {
	return s.arm(Unloading, st)
}

func (s *LoadSequencer) arm(phase LoadPhase, st LoadState) LoadState {
	if st.Phase == phase {
		return st
	}
	return LoadState{Phase: phase, NoteDetected: st.NoteDetected}
}

// Cancel returns to idle from any phase.
func (s *LoadSequencer) Cancel(st LoadState) LoadState {
	return LoadState{Phase: LoadIdle, NoteDetected: st.NoteDetected}
}

// Step advances one tick with this tick's note reading and returns the
// shooter output.
func (s *LoadSequencer) Step(noteDetected bool, st LoadState) (LoadState, float64) {
	next := st
	next.NoteDetected = noteDetected

	switch st.Phase {
	case Loading, Unloading:
		if noteDetected {
			return LoadState{Phase: LoadComplete, NoteDetected: true}, 0
		}
		next.Ticks++
		return next, s.cfg.FeedSpeed
	}
	next.Ticks++
	return next, 0
}
