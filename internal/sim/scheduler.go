package sim

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// SchedulerState is the scheduler's position in its cycle.
type SchedulerState int

const (
	Idle SchedulerState = iota
	Accumulating
	TickReady
)

func (s SchedulerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case TickReady:
		return "tick_ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Scheduler converts elapsed wall time into whole simulation ticks.
//
// The accumulator counts nanoseconds scaled by the speed in permille, so
// speed changes never introduce rounding drift: the same sequence of
// Accumulate calls always yields the same ticks.
//
// Accessed only from the game loop goroutine; no locks needed.
type Scheduler struct {
	log      *zap.Logger
	step     int64 // nanoseconds per tick, times 1000
	maxTicks int64
	speed    int64 // permille; 1000 is real time
	paused   bool
	exit     bool

	acc   int64
	tick  uint64
	state SchedulerState
}

func NewScheduler(step time.Duration, maxTicksPerAdvance int, log *zap.Logger) *Scheduler {
	if step <= 0 {
		step = 100 * time.Millisecond
	}
	if maxTicksPerAdvance < 1 {
		maxTicksPerAdvance = 1
	}
	return &Scheduler{
		log:      log,
		step:     int64(step) * 1000,
		maxTicks: int64(maxTicksPerAdvance),
		speed:    1000,
	}
}

// Tick returns the last completed tick.
func (s *Scheduler) Tick() uint64 { return s.tick }

func (s *Scheduler) State() SchedulerState { return s.state }

// Step returns the simulated duration of one tick.
func (s *Scheduler) Step() time.Duration { return time.Duration(s.step / 1000) }

// Speed returns the multiplier as a float for display.
func (s *Scheduler) Speed() float64 { return float64(s.speed) / 1000 }

// SetSpeed takes effect on the next Accumulate. Range checks belong to the
// caller.
func (s *Scheduler) SetSpeed(speed float64) {
	s.speed = int64(math.Round(speed * 1000))
}

// SetPaused freezes or resumes accumulation. Time accumulated before a
// pause is discarded so resuming never bursts.
func (s *Scheduler) SetPaused(paused bool) {
	s.paused = paused
	if paused {
		s.acc = 0
		s.state = Idle
	}
}

func (s *Scheduler) Paused() bool { return s.paused }

func (s *Scheduler) RequestExit() { s.exit = true }

func (s *Scheduler) ExitRequested() bool { return s.exit }

// Accumulate adds elapsed wall time. The backlog is clamped to
// maxTicksPerAdvance whole ticks; the partial remainder is kept.
func (s *Scheduler) Accumulate(elapsed time.Duration) {
	if s.paused || elapsed <= 0 || s.speed <= 0 {
		s.settle()
		return
	}
	// Anything past one tick over the budget is clamped away below, so cap
	// it first to keep the product in range.
	if limit := (s.maxTicks+1)*s.step/s.speed + 1; int64(elapsed) > limit {
		elapsed = time.Duration(limit)
	}
	s.acc += int64(elapsed) * s.speed
	if due := s.acc / s.step; due > s.maxTicks {
		s.log.Warn("追趕過多，已截斷",
			zap.Int64("due", due),
			zap.Int64("max", s.maxTicks),
			zap.Uint64("tick", s.tick))
		s.acc = s.maxTicks*s.step + s.acc%s.step
	}
	s.settle()
}

// UntilNext returns the shortest wall time that completes exactly one more
// tick at the current speed, zero while paused or stopped.
func (s *Scheduler) UntilNext() time.Duration {
	if s.paused || s.speed <= 0 {
		return 0
	}
	missing := s.step - s.acc
	if missing <= 0 {
		return 0
	}
	return time.Duration((missing + s.speed - 1) / s.speed)
}

// Ready reports whether a full step is waiting.
func (s *Scheduler) Ready() bool { return s.state == TickReady }

// Next consumes one step and returns the new tick number.
func (s *Scheduler) Next() uint64 {
	s.acc -= s.step
	s.tick++
	s.settle()
	return s.tick
}

// Reset sets the tick counter, as after a load, and empties the
// accumulator.
func (s *Scheduler) Reset(tick uint64) {
	s.tick = tick
	s.acc = 0
	s.state = Idle
}

func (s *Scheduler) settle() {
	switch {
	case s.paused:
		s.state = Idle
	case s.acc >= s.step:
		s.state = TickReady
	case s.acc > 0:
		s.state = Accumulating
	default:
		s.state = Idle
	}
}
