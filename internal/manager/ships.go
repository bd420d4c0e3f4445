package manager

import (
	"github.com/stellardominion/server/internal/core/entity"
	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/world"
)

// Ships owns every ship.
type Ships struct {
	store  *entity.Store[world.Ship]
	seq    *entity.Sequence
	rules  *data.Rules
	notify event.Emitter
}

func NewShips(rules *data.Rules, notify event.Emitter) *Ships {
	return &Ships{
		store:  entity.NewStore[world.Ship](),
		seq:    entity.NewSequence(),
		rules:  rules,
		notify: notify,
	}
}

func (m *Ships) Component() event.ComponentID { return event.ShipManager }

func (m *Ships) Get(id world.ShipID) (world.Ship, error) {
	s, ok := m.store.Get(entity.ID(id))
	if !ok {
		return world.Ship{}, errs.NotFound("ship.get", "ship", uint64(id))
	}
	return s.Clone(), nil
}

func (m *Ships) Has(id world.ShipID) bool { return m.store.Has(entity.ID(id)) }

func (m *Ships) Len() int { return m.store.Len() }

// All returns copies of every ship in ascending ID order.
func (m *Ships) All() []world.Ship {
	out := make([]world.Ship, 0, m.store.Len())
	m.store.Each(func(_ entity.ID, s *world.Ship) {
		out = append(out, s.Clone())
	})
	return out
}

// OwnedBy returns f's ships.
func (m *Ships) OwnedBy(f world.FactionID) []world.Ship {
	var out []world.Ship
	m.store.Each(func(_ entity.ID, s *world.Ship) {
		if s.Owner == f {
			out = append(out, s.Clone())
		}
	})
	return out
}

// DockedAt returns the ships docked at planet p.
func (m *Ships) DockedAt(p world.PlanetID) []world.Ship {
	var out []world.Ship
	m.store.Each(func(_ entity.ID, s *world.Ship) {
		if s.Docked == p {
			out = append(out, s.Clone())
		}
	})
	return out
}

// Spawn creates a ship of class c for owner, docked at planet with full
// fuel tanks.
func (m *Ships) Spawn(c world.ShipClass, owner world.FactionID, planet world.PlanetID, pos world.Vector2) (world.ShipID, error) {
	def, ok := m.rules.ShipClass(c)
	if !ok {
		return 0, errs.Invalid("ship.spawn", "unknown ship class %q", c)
	}
	return m.Create(world.Ship{
		Class:         c,
		Position:      pos,
		Docked:        planet,
		Fuel:          def.FuelCapacity,
		FuelCapacity:  def.FuelCapacity,
		CargoCapacity: def.CargoCapacity,
		Owner:         owner,
	})
}

// Create registers s and returns its new identifier.
func (m *Ships) Create(s world.Ship) (world.ShipID, error) {
	s.ID = world.ShipID(m.seq.Peek())
	if s.Trajectory != nil {
		t := *s.Trajectory
		s.Trajectory = &t
	}
	if err := s.CheckInvariants(); err != nil {
		return 0, errs.InvalidEntity("ship.create", "ship", uint64(s.ID), "%v", err)
	}
	m.seq.Next()
	m.store.Set(entity.ID(s.ID), &s)
	m.changed(&s)
	return s.ID, nil
}

func (m *Ships) mutate(op string, id world.ShipID, fn func(s *world.Ship) error) error {
	cur, ok := m.store.Get(entity.ID(id))
	if !ok {
		return errs.NotFound(op, "ship", uint64(id))
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.CheckInvariants(); err != nil {
		return errs.Invariant(op, "ship", uint64(id), err)
	}
	*cur = next
	m.changed(cur)
	return nil
}

func (m *Ships) changed(s *world.Ship) {
	if m.notify != nil {
		m.notify.Queue(event.ShipUpdated{Ship: s.Clone()})
	}
}

// SetTrajectory replaces any current trajectory and undocks the ship.
func (m *Ships) SetTrajectory(id world.ShipID, t world.Trajectory) error {
	const op = "ship.set_trajectory"
	return m.mutate(op, id, func(s *world.Ship) error {
		if t.ArrivalTick <= t.DepartureTick {
			return errs.InvalidEntity(op, "ship", uint64(id), "arrival tick %d not after departure %d", t.ArrivalTick, t.DepartureTick)
		}
		if t.FuelCost > s.Fuel {
			return errs.InvalidEntity(op, "ship", uint64(id), "trip needs %d fuel, has %d", t.FuelCost, s.Fuel)
		}
		t.FuelBurned = 0
		s.Trajectory = &t
		s.Docked = 0
		return nil
	})
}

// UpdatePosition moves the ship.
func (m *Ships) UpdatePosition(id world.ShipID, pos world.Vector2) error {
	const op = "ship.update_position"
	return m.mutate(op, id, func(s *world.Ship) error {
		if !pos.Finite() {
			return errs.InvalidEntity(op, "ship", uint64(id), "non-finite position")
		}
		s.Position = pos
		return nil
	})
}

// ConsumeFuel burns amount, crediting the active trajectory.
func (m *Ships) ConsumeFuel(id world.ShipID, amount int64) error {
	const op = "ship.consume_fuel"
	return m.mutate(op, id, func(s *world.Ship) error {
		if amount < 0 {
			return errs.InvalidEntity(op, "ship", uint64(id), "negative burn %d", amount)
		}
		if amount > s.Fuel {
			return errs.InvalidEntity(op, "ship", uint64(id), "burn %d > fuel %d", amount, s.Fuel)
		}
		s.Fuel -= amount
		if s.Trajectory != nil {
			s.Trajectory.FuelBurned += amount
		}
		return nil
	})
}

// Refuel adds fuel up to the tank capacity; asking for more is an error.
func (m *Ships) Refuel(id world.ShipID, amount int64) error {
	const op = "ship.refuel"
	return m.mutate(op, id, func(s *world.Ship) error {
		if amount < 0 || amount > s.FuelCapacity-s.Fuel {
			return errs.InvalidEntity(op, "ship", uint64(id), "refuel %d with %d/%d", amount, s.Fuel, s.FuelCapacity)
		}
		s.Fuel += amount
		return nil
	})
}

// Arrive ends the trajectory that departed at departure, placing the ship
// at pos and docking when planet is non-zero. A ship that has since taken
// a new order is left alone.
func (m *Ships) Arrive(id world.ShipID, departure uint64, pos world.Vector2, planet world.PlanetID) error {
	const op = "ship.arrive"
	if stale, err := m.superseded(op, id, departure); err != nil || stale {
		return err
	}
	return m.mutate(op, id, func(s *world.Ship) error {
		s.Trajectory = nil
		s.Position = pos
		s.Docked = planet
		return nil
	})
}

// Halt drops the trajectory that departed at departure, leaving the ship
// where it is.
func (m *Ships) Halt(id world.ShipID, departure uint64) error {
	const op = "ship.halt"
	if stale, err := m.superseded(op, id, departure); err != nil || stale {
		return err
	}
	return m.mutate(op, id, func(s *world.Ship) error {
		s.Trajectory = nil
		return nil
	})
}

func (m *Ships) superseded(op string, id world.ShipID, departure uint64) (bool, error) {
	cur, ok := m.store.Get(entity.ID(id))
	if !ok {
		return false, errs.NotFound(op, "ship", uint64(id))
	}
	return cur.Trajectory == nil || cur.Trajectory.DepartureTick != departure, nil
}

// LoadCargo adds b to the hold.
func (m *Ships) LoadCargo(id world.ShipID, b world.ResourceBundle) error {
	const op = "ship.load_cargo"
	return m.mutate(op, id, func(s *world.Ship) error {
		if s.CargoCapacity == 0 {
			return errs.InvalidEntity(op, "ship", uint64(id), "%s carries no cargo", s.Class)
		}
		if !b.NonNegative() || b.IsZero() {
			return errs.InvalidEntity(op, "ship", uint64(id), "cargo %s must be positive", b)
		}
		if free := s.CargoCapacity - s.Cargo.Total(); b.Total() > free {
			return errs.InvalidEntity(op, "ship", uint64(id), "cargo %d > free hold %d", b.Total(), free)
		}
		sum, err := s.Cargo.Add(b)
		if err != nil {
			return errs.InvalidEntity(op, "ship", uint64(id), "%v", err)
		}
		s.Cargo = sum
		return nil
	})
}

// UnloadCargo empties the hold and returns what was in it.
func (m *Ships) UnloadCargo(id world.ShipID) (world.ResourceBundle, error) {
	const op = "ship.unload_cargo"
	var out world.ResourceBundle
	err := m.mutate(op, id, func(s *world.Ship) error {
		if s.Cargo.IsZero() {
			return errs.InvalidEntity(op, "ship", uint64(id), "hold is empty")
		}
		out = s.Cargo
		s.Cargo = world.ResourceBundle{}
		return nil
	})
	return out, err
}

// Destroy removes the ship. Its identifier is never reused.
func (m *Ships) Destroy(id world.ShipID) error {
	s, ok := m.store.Get(entity.ID(id))
	if !ok {
		return errs.NotFound("ship.destroy", "ship", uint64(id))
	}
	owner := s.Owner
	m.store.Remove(entity.ID(id))
	if m.notify != nil {
		m.notify.Queue(event.ShipDestroyed{Ship: id, Owner: owner})
	}
	return nil
}

// HandleEvent applies the simulation outcomes the ship manager owns.
func (m *Ships) HandleEvent(ev event.Event, _ event.Emitter) error {
	switch e := ev.(type) {
	case event.ShipCompleted:
		_, err := m.Spawn(e.Class, e.Owner, e.Planet, e.Position)
		return err
	case event.ShipArrived:
		return m.Arrive(e.Ship, e.Departure, e.Position, e.Planet)
	case event.FuelExhausted:
		return m.Halt(e.Ship, e.Departure)
	case event.CombatResolved:
		// Validate every loss before removing any.
		for _, id := range e.Destroyed {
			if !m.Has(id) {
				return errs.NotFound("ship.combat_losses", "ship", uint64(id))
			}
		}
		for _, id := range e.Destroyed {
			if err := m.Destroy(id); err != nil {
				return err
			}
		}
	case event.PlanetColonized:
		return m.Destroy(e.Ship)
	}
	return nil
}

// Snapshot returns every ship plus the next identifier.
func (m *Ships) Snapshot() ([]world.Ship, world.ShipID) {
	return m.All(), world.ShipID(m.seq.Peek())
}

// Restore replaces the collection; on error the manager is left untouched.
func (m *Ships) Restore(ships []world.Ship, next world.ShipID) error {
	const op = "ship.restore"
	fresh := entity.NewStore[world.Ship]()
	for i := range ships {
		s := ships[i].Clone()
		if s.ID == 0 || fresh.Has(entity.ID(s.ID)) {
			return errs.InvalidEntity(op, "ship", uint64(s.ID), "duplicate or zero id")
		}
		if err := s.CheckInvariants(); err != nil {
			return errs.InvalidEntity(op, "ship", uint64(s.ID), "%v", err)
		}
		fresh.Set(entity.ID(s.ID), &s)
	}
	m.store = fresh
	m.seq.Restore(entity.ID(next), fresh.MaxID())
	return nil
}
