// Package sim is the simulation root. It exclusively owns the bus, the
// scheduler, the managers and the systems; nothing else holds them.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/core/event"
	coresys "github.com/stellardominion/server/internal/core/system"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/manager"
	"github.com/stellardominion/server/internal/persist"
	"github.com/stellardominion/server/internal/system"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options carries the optional collaborators.
type Options struct {
	Store   persist.Store // nil disables Save and Load
	Planner system.Planner
	Sources []system.CommandSource
	Sinks   []system.Sink
}

// Simulation drives the world one tick at a time.
//
// Accessed only from the game loop goroutine; no locks needed.
type Simulation struct {
	cfg   *config.Config
	rules *data.Rules
	log   *zap.Logger
	setup Setup

	bus   *event.Bus
	sched *Scheduler

	planets  *manager.Planets
	ships    *manager.Ships
	factions *manager.Factions

	input        *system.InputSystem
	construction *system.ConstructionSystem
	combat       *system.CombatSystem
	persistence  *system.PersistenceSystem
	observer     *system.ObserverSystem
	runner       *coresys.Runner

	fault  error
	failed error // non-fatal event failures since the last Advance or Flush
}

// New assembles a simulation with an empty world. Call Reset or Restore
// to populate it.
func New(cfg *config.Config, rules *data.Rules, opts Options, log *zap.Logger) (*Simulation, error) {
	sc := cfg.Simulation
	s := &Simulation{
		cfg:   cfg,
		rules: rules,
		log:   log,
		setup: SetupFromConfig(cfg.Game),
		bus: event.NewBus(event.Options{
			MaxIterations: sc.MaxDispatchIterations,
			Budget:        sc.SystemBudget,
			HistoryLimit:  sc.HistoryLimit,
		}, log),
		sched: NewScheduler(sc.Tick, sc.MaxTicksPerAdvance, log),
	}
	s.planets = manager.NewPlanets(rules, s.bus)
	s.ships = manager.NewShips(rules, s.bus)
	s.factions = manager.NewFactions(rules, s.bus)

	deps := &system.Deps{
		Planets:  s.planets,
		Ships:    s.ships,
		Factions: s.factions,
		Rules:    rules,
		Clock:    s.sched,
		Log:      log,
	}
	s.input = system.NewInputSystem(deps, system.InputConfig{
		Step:        sc.Tick,
		CommandRate: sc.CommandRate,
		Burst:       sc.CommandBurst,
		MaxPerTick:  cfg.Gateway.MaxCommandsTick,
		AIInterval:  cfg.Scripting.AIIntervalTicks,
	}, opts.Planner, opts.Sources...)
	s.construction = system.NewConstructionSystem(deps)
	s.combat = system.NewCombatSystem(deps)
	s.persistence = system.NewPersistenceSystem(opts.Store, s, log,
		cfg.Game.AutosaveTicks, cfg.Game.SaveSlot, cfg.Database.Timeout)
	s.observer = system.NewObserverSystem(log, opts.Sinks...)

	runner, err := coresys.NewRunner(
		s.input,
		system.NewMovementSystem(deps),
		system.NewResourceSystem(deps),
		system.NewPopulationSystem(deps),
		s.construction,
		s.combat,
		system.NewTimeSystem(s.sched, sc.MinSpeed, sc.MaxSpeed),
		s.persistence,
		s.observer,
	)
	if err != nil {
		return nil, fmt.Errorf("assemble systems: %w", err)
	}
	extra := map[event.ComponentID]event.Handler{
		event.PlanetManager:  s.planets,
		event.ShipManager:    s.ships,
		event.FactionManager: s.factions,
	}
	if err := runner.Attach(s.bus, Routes, extra); err != nil {
		return nil, fmt.Errorf("attach systems: %w", err)
	}
	s.runner = runner
	return s, nil
}

// Submit queues a command for the next dispatch.
func (s *Simulation) Submit(cmd event.Event) {
	s.bus.Queue(cmd)
}

// AddSource attaches an external command source.
func (s *Simulation) AddSource(src system.CommandSource) { s.input.AddSource(src) }

// AddSink attaches an observer sink.
func (s *Simulation) AddSink(sink system.Sink) { s.observer.AddSink(sink) }

// Advance feeds elapsed wall time to the scheduler. Commands submitted
// since the last call are dispatched first, then one dispatch pass runs
// per completed tick. It returns the number of ticks completed.
//
// A fatal error stops the simulation for good and is returned as soon as
// it happens; Fault reports it from then on. Failures while handling
// simulation events do not stop the ticks: they are joined and returned
// once the call is done. Rejected commands are reported as CommandFailed
// events instead.
func (s *Simulation) Advance(ctx context.Context, elapsed time.Duration) (int, error) {
	if s.fault != nil {
		return 0, s.fault
	}
	s.failed = nil
	if err := s.dispatch(ctx); err != nil {
		return 0, err
	}
	s.sched.Accumulate(elapsed)
	n := 0
	for s.sched.Ready() {
		if err := ctx.Err(); err != nil {
			return n, multierr.Append(s.takeFailed(), err)
		}
		tick := s.sched.Next()
		s.bus.Queue(event.TickCompleted{Tick: tick})
		if err := s.dispatch(ctx); err != nil {
			return n, err
		}
		n++
	}
	return n, s.takeFailed()
}

// RunTicks completes n ticks at the current speed, feeding the scheduler
// just enough time for one tick at a time. It stops early when the game is
// paused or an Exit command runs.
func (s *Simulation) RunTicks(ctx context.Context, n int) error {
	// Pending commands may change the speed; settle them before sizing the
	// first step.
	failed := s.Flush(ctx)
	if s.fault != nil {
		return s.fault
	}
	for done := 0; done < n; {
		if s.sched.Paused() || s.sched.ExitRequested() {
			break
		}
		step := s.sched.UntilNext()
		if step <= 0 {
			break
		}
		k, err := s.Advance(ctx, step)
		done += k
		if s.fault != nil || ctx.Err() != nil {
			return multierr.Append(failed, err)
		}
		failed = multierr.Append(failed, err)
	}
	return failed
}

// Flush dispatches pending commands without advancing time. Like Advance,
// it returns the fault or the joined event failures.
func (s *Simulation) Flush(ctx context.Context) error {
	if s.fault != nil {
		return s.fault
	}
	s.failed = nil
	if err := s.dispatch(ctx); err != nil {
		return err
	}
	return s.takeFailed()
}

func (s *Simulation) dispatch(ctx context.Context) error {
	for s.bus.Pending() > 0 {
		rep, err := s.bus.Dispatch()
		if err != nil {
			s.fault = fmt.Errorf("tick %d: %w", s.sched.Tick(), err)
			return s.fault
		}
		if ferr := rep.EventErr(); ferr != nil {
			s.failed = multierr.Append(s.failed, fmt.Errorf("tick %d: %w", s.sched.Tick(), ferr))
		}
		for _, ev := range s.persistence.Settle(ctx) {
			s.bus.Queue(ev)
		}
	}
	return nil
}

func (s *Simulation) takeFailed() error {
	err := s.failed
	s.failed = nil
	return err
}

// Capture returns a complete snapshot of the current state.
func (s *Simulation) Capture() *world.Snapshot {
	snap := &world.Snapshot{Version: world.SnapshotVersion, Tick: s.sched.Tick()}
	snap.Planets, snap.NextPlanetID = s.planets.Snapshot()
	snap.Ships, snap.NextShipID = s.ships.Snapshot()
	snap.Factions, snap.NextFactionID = s.factions.Snapshot()
	snap.Orders, snap.NextOrderID = s.construction.Orders()
	snap.Battles, snap.NextBattleID = s.combat.Battles()
	if t := s.input.Throttle(); len(t) > 0 {
		snap.Throttle = t
	}
	return snap
}

// Restore replaces the whole state with snap. On error the previous state
// is kept.
func (s *Simulation) Restore(snap *world.Snapshot) error {
	if snap.Version != world.SnapshotVersion {
		return fmt.Errorf("restore: %w", persist.ErrUnsupportedVersion)
	}
	prev := s.Capture()
	if err := s.apply(snap); err != nil {
		if rerr := s.apply(prev); rerr != nil {
			s.fault = fmt.Errorf("restore rollback: %w", rerr)
		}
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

func (s *Simulation) apply(snap *world.Snapshot) error {
	if err := s.planets.Restore(snap.Planets, snap.NextPlanetID); err != nil {
		return err
	}
	if err := s.ships.Restore(snap.Ships, snap.NextShipID); err != nil {
		return err
	}
	if err := s.factions.Restore(snap.Factions, snap.NextFactionID); err != nil {
		return err
	}
	if err := s.construction.Restore(snap.Orders, snap.NextOrderID); err != nil {
		return err
	}
	if err := s.combat.Restore(snap.Battles, snap.NextBattleID); err != nil {
		return err
	}
	if err := s.input.RestoreThrottle(snap.Throttle); err != nil {
		return err
	}
	s.sched.Reset(snap.Tick)
	return nil
}

// Reset discards the world and generates a new game from the configured
// setup.
func (s *Simulation) Reset() error {
	prev := s.Capture()
	empty := &world.Snapshot{Version: world.SnapshotVersion}
	if err := s.apply(empty); err != nil {
		return err
	}
	if err := populate(s.setup, s.rules, s.planets, s.ships, s.factions); err != nil {
		s.bus.Drop()
		if rerr := s.apply(prev); rerr != nil {
			s.fault = fmt.Errorf("reset rollback: %w", rerr)
		}
		return err
	}
	return nil
}

// Tick returns the last completed tick.
func (s *Simulation) Tick() uint64 { return s.sched.Tick() }

func (s *Simulation) Paused() bool { return s.sched.Paused() }

func (s *Simulation) Speed() float64 { return s.sched.Speed() }

func (s *Simulation) State() SchedulerState { return s.sched.State() }

// ExitRequested reports whether an Exit command was executed.
func (s *Simulation) ExitRequested() bool { return s.sched.ExitRequested() }

// Fault returns the fatal error that stopped the simulation, if any.
func (s *Simulation) Fault() error { return s.fault }

func (s *Simulation) Planet(id world.PlanetID) (world.Planet, error) { return s.planets.Get(id) }

func (s *Simulation) Ship(id world.ShipID) (world.Ship, error) { return s.ships.Get(id) }

func (s *Simulation) Faction(id world.FactionID) (world.Faction, error) { return s.factions.Get(id) }

func (s *Simulation) Planets() []world.Planet { return s.planets.All() }

func (s *Simulation) Ships() []world.Ship { return s.ships.All() }

func (s *Simulation) Factions() []world.Faction { return s.factions.All() }

// ConstructionQueue returns planet p's queue, head first.
func (s *Simulation) ConstructionQueue(p world.PlanetID) []world.ConstructionOrder {
	return s.construction.Queue(p)
}

// Battles returns the battles awaiting resolution.
func (s *Simulation) Battles() []world.Battle {
	b, _ := s.combat.Battles()
	return b
}

// History returns recently dispatched events, oldest first.
func (s *Simulation) History() []event.Event { return s.bus.History() }

// Seen returns how many events of kind k the observer received.
func (s *Simulation) Seen(k event.Kind) uint64 { return s.observer.Count(k) }
