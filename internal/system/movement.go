package system

import (
	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/orbit"
	"github.com/stellardominion/server/internal/world"
)

// MovementSystem plans trips with the orbit collaborator, advances ships
// along their trajectory each tick and reports arrival and fuel
// exhaustion. Docked ships ride along with their planet.
type MovementSystem struct {
	deps *Deps
}

func NewMovementSystem(deps *Deps) *MovementSystem {
	return &MovementSystem{deps: deps}
}

func (s *MovementSystem) Component() event.ComponentID { return event.Movement }

func (s *MovementSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		for _, sh := range s.deps.Ships.All() {
			if err := s.step(sh, e.Tick, emit); err != nil {
				return err
			}
		}
	case event.MoveShip:
		return s.move(e, emit)
	}
	return nil
}

// move plans the trip and replaces whatever order the ship had.
func (s *MovementSystem) move(c event.MoveShip, emit event.Emitter) error {
	const op = "movement.move"
	sh, err := s.deps.ownedShip(op, c.Faction, c.Ship)
	if err != nil {
		return err
	}
	def, ok := s.deps.Rules.ShipClass(sh.Class)
	if !ok {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "unknown class %q", sh.Class)
	}
	tick := s.deps.Clock.Tick()
	var tr world.Trajectory
	if c.TargetPlanet != 0 {
		p, err := s.deps.Planets.Get(c.TargetPlanet)
		if err != nil {
			return err
		}
		if sh.Docked == p.ID && !sh.Moving() {
			return errs.InvalidEntity(op, "ship", uint64(sh.ID), "already docked at planet %d", p.ID)
		}
		tr = orbit.Intercept(sh.Position, p.Orbit, def.Speed, tick, s.deps.orbitParams())
		tr.TargetPlanet = p.ID
	} else {
		if !c.Target.Finite() {
			return errs.InvalidEntity(op, "ship", uint64(sh.ID), "non-finite target")
		}
		if sh.Position.DistanceTo(c.Target) <= s.deps.Rules.Movement.ArrivalTolerance {
			return errs.InvalidEntity(op, "ship", uint64(sh.ID), "already at target")
		}
		tr = orbit.Transfer(sh.Position, c.Target, def.Speed, tick, s.deps.orbitParams())
	}
	if tr.FuelCost > sh.Fuel {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "trip needs %d fuel, has %d", tr.FuelCost, sh.Fuel)
	}
	if err := s.deps.Ships.SetTrajectory(sh.ID, tr); err != nil {
		return err
	}
	emit.Queue(event.ShipDeparted{Ship: sh.ID, Trajectory: tr})
	return nil
}

func (s *MovementSystem) step(sh world.Ship, tick uint64, emit event.Emitter) error {
	if !sh.Moving() {
		if sh.Docked == 0 {
			return nil
		}
		p, err := s.deps.Planets.Get(sh.Docked)
		if err != nil {
			return nil
		}
		if pos := s.deps.planetPosition(p, tick); pos != sh.Position {
			return s.deps.Ships.UpdatePosition(sh.ID, pos)
		}
		return nil
	}

	tr := *sh.Trajectory
	burn := tr.BurnDue(tick)
	if burn > sh.Fuel {
		if sh.Fuel > 0 {
			if err := s.deps.Ships.ConsumeFuel(sh.ID, sh.Fuel); err != nil {
				return err
			}
		}
		emit.Queue(event.FuelExhausted{Ship: sh.ID, Departure: tr.DepartureTick, Position: sh.Position})
		return nil
	}
	if burn > 0 {
		if err := s.deps.Ships.ConsumeFuel(sh.ID, burn); err != nil {
			return err
		}
	}

	pos := orbit.Interpolate(tr, tick)
	if tick < tr.ArrivalTick && pos.DistanceTo(tr.Destination) > s.deps.Rules.Movement.ArrivalTolerance {
		return s.deps.Ships.UpdatePosition(sh.ID, pos)
	}

	arrived := event.ShipArrived{Ship: sh.ID, Departure: tr.DepartureTick, Position: tr.Destination}
	if tr.TargetPlanet != 0 {
		if p, err := s.deps.Planets.Get(tr.TargetPlanet); err == nil {
			at := s.deps.planetPosition(p, tick)
			if at.DistanceTo(tr.Destination) <= s.deps.Rules.Movement.DockingRange {
				arrived.Position = at
				arrived.Planet = p.ID
			}
		}
	}
	emit.Queue(arrived)
	return nil
}
