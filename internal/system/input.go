package system

import (
	"math"
	"sort"
	"time"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/scripting"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
)

// CommandSource feeds external commands into the game loop. Implementations
// must be safe to drain from the game loop goroutine while other
// goroutines fill them.
type CommandSource interface {
	Drain(max int) []event.Event
}

// Planner decides commands for an AI faction.
type Planner interface {
	Decide(v scripting.View) ([]event.Event, error)
}

// InputConfig tunes command intake.
type InputConfig struct {
	Step        time.Duration // one tick of simulated time
	CommandRate float64       // commands per simulated second per faction; 0 disables
	Burst       int
	MaxPerTick  int    // external commands drained per tick
	AIInterval  uint64 // ticks between AI decisions; 0 disables AI
}

// InputSystem is the first stop for every command. It checks the issuing
// faction exists and throttles each faction with a token bucket refilled
// per tick, so admission replays exactly and survives save and load. On
// each tick it drains the external sources and asks the planner for AI
// commands.
type InputSystem struct {
	deps    *Deps
	cfg     InputConfig
	sources []CommandSource
	planner Planner

	perTick int64 // bucket refill per tick, thousandths of a command
	ceiling int64
	buckets map[world.FactionID]*world.CommandBucket
}

func NewInputSystem(deps *Deps, cfg InputConfig, planner Planner, sources ...CommandSource) *InputSystem {
	if cfg.Step <= 0 {
		cfg.Step = 100 * time.Millisecond
	}
	return &InputSystem{
		deps:    deps,
		cfg:     cfg,
		sources: sources,
		planner: planner,
		perTick: int64(math.Round(cfg.CommandRate * cfg.Step.Seconds() * 1000)),
		ceiling: int64(max(cfg.Burst, 1)) * 1000,
		buckets: make(map[world.FactionID]*world.CommandBucket),
	}
}

func (s *InputSystem) Component() event.ComponentID { return event.Input }

// AddSource attaches another external command source.
func (s *InputSystem) AddSource(src CommandSource) {
	s.sources = append(s.sources, src)
}

func (s *InputSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		s.poll(e.Tick, emit)
		return nil
	case event.GameReset:
		s.buckets = make(map[world.FactionID]*world.CommandBucket)
		return nil
	case event.SelectPlanet:
		if _, err := s.deps.Planets.Get(e.Planet); err != nil {
			return err
		}
		emit.Queue(event.Selected{Planet: e.Planet})
		return nil
	case event.SelectShip:
		if _, err := s.deps.Ships.Get(e.Ship); err != nil {
			return err
		}
		emit.Queue(event.Selected{Ship: e.Ship})
		return nil
	}
	if event.IsCommand(ev) {
		return s.admit(ev)
	}
	return nil
}

func (s *InputSystem) admit(ev event.Event) error {
	f := event.CommandFaction(ev)
	if f == 0 {
		return nil
	}
	if !s.deps.Factions.Has(f) {
		return errs.NotFound("input.admit", "faction", uint64(f))
	}
	if s.cfg.CommandRate <= 0 {
		return nil
	}
	now := s.deps.Clock.Tick()
	b, ok := s.buckets[f]
	if !ok {
		b = &world.CommandBucket{Faction: f, Milli: s.ceiling, Tick: now}
		s.buckets[f] = b
	}
	s.refill(b, now)
	if b.Milli < 1000 {
		return errs.Invalid("input.admit", "faction %d is over its command rate", f)
	}
	b.Milli -= 1000
	return nil
}

func (s *InputSystem) refill(b *world.CommandBucket, now uint64) {
	if now <= b.Tick {
		return
	}
	gap := now - b.Tick
	b.Tick = now
	if b.Milli >= s.ceiling || s.perTick <= 0 {
		return
	}
	if gap >= uint64(s.ceiling/s.perTick)+1 {
		b.Milli = s.ceiling
		return
	}
	b.Milli = min(s.ceiling, b.Milli+int64(gap)*s.perTick)
}

// Throttle returns every faction's command allowance, by faction.
func (s *InputSystem) Throttle() []world.CommandBucket {
	out := make([]world.CommandBucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Faction < out[j].Faction })
	return out
}

// RestoreThrottle replaces every allowance.
func (s *InputSystem) RestoreThrottle(buckets []world.CommandBucket) error {
	const op = "input.restore"
	next := make(map[world.FactionID]*world.CommandBucket, len(buckets))
	for _, b := range buckets {
		if b.Faction == 0 || b.Milli < 0 {
			return errs.Invalid(op, "bad allowance %+v", b)
		}
		if _, dup := next[b.Faction]; dup {
			return errs.Invalid(op, "faction %d has two allowances", b.Faction)
		}
		b := b
		next[b.Faction] = &b
	}
	s.buckets = next
	return nil
}

func (s *InputSystem) poll(tick uint64, emit event.Emitter) {
	for _, src := range s.sources {
		for _, cmd := range src.Drain(s.cfg.MaxPerTick) {
			emit.Queue(cmd)
		}
	}
	if s.planner == nil || s.cfg.AIInterval == 0 || tick%s.cfg.AIInterval != 0 {
		return
	}
	planets := s.deps.Planets.All()
	slots := make(map[world.PlanetID]int, len(planets))
	for _, p := range planets {
		slots[p.ID] = s.deps.Rules.Planets.Slots.Slots(p.Population)
	}
	for _, f := range s.deps.Factions.All() {
		if f.Player || f.AITag == "" {
			continue
		}
		cmds, err := s.planner.Decide(scripting.View{
			Tick:    tick,
			Faction: f,
			Planets: planets,
			Ships:   s.deps.Ships.OwnedBy(f.ID),
			Slots:   slots,
		})
		if err != nil {
			s.deps.Log.Warn("AI 決策失敗", zap.Uint64("faction", uint64(f.ID)), zap.Error(err))
			continue
		}
		for _, c := range cmds {
			emit.Queue(c)
		}
	}
}
