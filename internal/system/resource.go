package system

import (
	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
)

// ResourceSystem runs production and upkeep every tick, refuels docked
// ships from their home planet, and executes transfer and cargo commands.
// It is the designated caller of Planets.AddResources/RemoveResources on
// TickCompleted.
type ResourceSystem struct {
	deps *Deps
}

func NewResourceSystem(deps *Deps) *ResourceSystem {
	return &ResourceSystem{deps: deps}
}

func (s *ResourceSystem) Component() event.ComponentID { return event.Resource }

func (s *ResourceSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		for _, p := range s.deps.Planets.All() {
			if err := s.produce(p, emit); err != nil {
				return err
			}
		}
		return s.refuel()
	case event.TransferResources:
		return s.transfer(e, emit)
	case event.LoadCargo:
		return s.load(e, emit)
	case event.UnloadCargo:
		return s.unload(e, emit)
	}
	return nil
}

// Output returns the net per-tick output of p. Workers fill buildings of
// their labor kind in building order; negative entries are upkeep.
func Output(p world.Planet, deps *Deps) world.ResourceBundle {
	avail := p.Workers
	var out world.ResourceBundle
	for _, b := range p.Buildings {
		if !b.Operational {
			continue
		}
		def, ok := deps.Rules.Building(b.Type)
		if !ok || def.JobsPerTier == 0 || def.Labor == world.Unassigned {
			continue
		}
		employed := min(avail[def.Labor], def.JobsPerTier*int64(b.Tier))
		avail[def.Labor] -= employed
		out = out.Plus(def.Output.Scaled(employed))
	}
	return out
}

// produce stores production up to headroom first, then pays upkeep up to
// what is available.
func (s *ResourceSystem) produce(p world.Planet, emit event.Emitter) error {
	out := Output(p, s.deps)
	if out.IsZero() {
		return nil
	}
	gross := out.Positive()
	upkeep := out.Negated().Positive()

	stored := gross.Min(p.Resources.Headroom(p.Capacity))
	if !stored.IsZero() {
		if err := s.deps.Planets.AddResources(p.ID, stored); err != nil {
			return err
		}
	}
	if discarded := gross.Plus(stored.Negated()); !discarded.IsZero() {
		emit.Queue(event.StorageCapped{Planet: p.ID, Discarded: discarded})
	}

	balance := p.Resources.Plus(stored)
	paid := upkeep.Min(balance)
	if !paid.IsZero() {
		if err := s.deps.Planets.RemoveResources(p.ID, paid); err != nil {
			return err
		}
	}
	if shortfall := upkeep.Plus(paid.Negated()); !shortfall.IsZero() {
		emit.Queue(event.ResourceShortage{Planet: p.ID, Shortfall: shortfall})
	}
	if !stored.IsZero() || !paid.IsZero() {
		emit.Queue(event.ResourcesProduced{Planet: p.ID, Produced: stored, Consumed: paid})
	}
	return nil
}

// refuel tops up ships docked at a planet their owner controls.
func (s *ResourceSystem) refuel() error {
	for _, sh := range s.deps.Ships.All() {
		if sh.Docked == 0 || sh.Moving() || sh.Fuel >= sh.FuelCapacity {
			continue
		}
		p, err := s.deps.Planets.Get(sh.Docked)
		if err != nil || p.Controller != sh.Owner {
			continue
		}
		amount := min(sh.FuelCapacity-sh.Fuel, p.Resources[world.Fuel])
		if amount <= 0 {
			continue
		}
		if err := s.deps.Planets.RemoveResources(p.ID, world.Bundle(world.Fuel, amount)); err != nil {
			return err
		}
		if err := s.deps.Ships.Refuel(sh.ID, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *ResourceSystem) transfer(c event.TransferResources, emit event.Emitter) error {
	const op = "resource.transfer"
	src, err := s.deps.ownedPlanet(op, c.Faction, c.From)
	if err != nil {
		return err
	}
	dst, err := s.deps.ownedPlanet(op, c.Faction, c.To)
	if err != nil {
		return err
	}
	if src.Controller == 0 || src.Controller != dst.Controller {
		return errs.Invalid(op, "planets %d and %d are not held by one faction", c.From, c.To)
	}
	if err := s.deps.Planets.Transfer(c.From, c.To, c.Amount); err != nil {
		return err
	}
	emit.Queue(event.ResourcesTransferred{From: c.From, To: c.To, Amount: c.Amount})
	return nil
}

func (s *ResourceSystem) dockedHome(op string, f world.FactionID, id world.ShipID) (world.Ship, world.Planet, error) {
	sh, err := s.deps.ownedShip(op, f, id)
	if err != nil {
		return sh, world.Planet{}, err
	}
	if sh.Docked == 0 {
		return sh, world.Planet{}, errs.InvalidEntity(op, "ship", uint64(id), "not docked")
	}
	p, err := s.deps.Planets.Get(sh.Docked)
	if err != nil {
		return sh, p, err
	}
	if p.Controller != sh.Owner {
		return sh, p, errs.InvalidEntity(op, "planet", uint64(p.ID), "not controlled by the ship's owner")
	}
	return sh, p, nil
}

func (s *ResourceSystem) load(c event.LoadCargo, emit event.Emitter) error {
	const op = "resource.load_cargo"
	sh, p, err := s.dockedHome(op, c.Faction, c.Ship)
	if err != nil {
		return err
	}
	if !p.Resources.CanAfford(c.Amount) {
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "cannot supply %s", c.Amount)
	}
	if free := sh.CargoCapacity - sh.Cargo.Total(); c.Amount.Total() > free {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "cargo %d > free hold %d", c.Amount.Total(), free)
	}
	if err := s.deps.Ships.LoadCargo(sh.ID, c.Amount); err != nil {
		return err
	}
	if err := s.deps.Planets.RemoveResources(p.ID, c.Amount); err != nil {
		return err
	}
	emit.Queue(event.CargoTransferred{Ship: sh.ID, Planet: p.ID, Amount: c.Amount, Loaded: true})
	return nil
}

func (s *ResourceSystem) unload(c event.UnloadCargo, emit event.Emitter) error {
	const op = "resource.unload_cargo"
	sh, p, err := s.dockedHome(op, c.Faction, c.Ship)
	if err != nil {
		return err
	}
	if sh.Cargo.IsZero() {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "hold is empty")
	}
	if !p.Resources.Fits(sh.Cargo, p.Capacity) {
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "cannot store %s", sh.Cargo)
	}
	cargo, err := s.deps.Ships.UnloadCargo(sh.ID)
	if err != nil {
		return err
	}
	if err := s.deps.Planets.AddResources(p.ID, cargo); err != nil {
		return err
	}
	emit.Queue(event.CargoTransferred{Ship: sh.ID, Planet: p.ID, Amount: cargo})
	return nil
}
