package system

import (
	"math"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
)

// Pacer is the scheduler surface the time system drives.
type Pacer interface {
	SetSpeed(speed float64)
	SetPaused(paused bool)
	Paused() bool
	RequestExit()
}

// TimeSystem executes the pacing commands: speed, pause and exit.
type TimeSystem struct {
	pacer    Pacer
	minSpeed float64
	maxSpeed float64
}

func NewTimeSystem(pacer Pacer, minSpeed, maxSpeed float64) *TimeSystem {
	return &TimeSystem{pacer: pacer, minSpeed: minSpeed, maxSpeed: maxSpeed}
}

func (s *TimeSystem) Component() event.ComponentID { return event.Time }

func (s *TimeSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.SetSpeed:
		if math.IsNaN(e.Speed) || e.Speed < s.minSpeed || e.Speed > s.maxSpeed {
			return errs.Invalid("time.set_speed", "speed %v outside [%v, %v]", e.Speed, s.minSpeed, s.maxSpeed)
		}
		s.pacer.SetSpeed(e.Speed)
		emit.Queue(event.SpeedChanged{Speed: e.Speed})
	case event.Pause:
		if s.pacer.Paused() == e.Paused {
			return nil
		}
		s.pacer.SetPaused(e.Paused)
		emit.Queue(event.PauseChanged{Paused: e.Paused})
	case event.Exit:
		s.pacer.RequestExit()
	}
	return nil
}
