package system

import (
	"sort"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
)

// ConstructionSystem keeps one FIFO build queue per planet. Costs are paid
// in full when an order is accepted; only the head of a queue makes
// progress, one tick per tick. Orders that have not started can be
// cancelled, without refund.
type ConstructionSystem struct {
	deps   *Deps
	queues map[world.PlanetID][]world.ConstructionOrder
	nextID uint64
}

func NewConstructionSystem(deps *Deps) *ConstructionSystem {
	return &ConstructionSystem{
		deps:   deps,
		queues: make(map[world.PlanetID][]world.ConstructionOrder),
		nextID: 1,
	}
}

func (s *ConstructionSystem) Component() event.ComponentID { return event.Construction }

func (s *ConstructionSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		return s.advance(e.Tick, emit)
	case event.BuildStructure:
		return s.queueBuilding(e, emit)
	case event.ConstructShip:
		return s.queueShip(e, emit)
	case event.CancelConstruction:
		return s.cancel(e, emit)
	}
	return nil
}

// Queue returns a copy of planet p's queue, head first.
func (s *ConstructionSystem) Queue(p world.PlanetID) []world.ConstructionOrder {
	return append([]world.ConstructionOrder(nil), s.queues[p]...)
}

func (s *ConstructionSystem) queuedBuildings(p world.PlanetID) int {
	n := 0
	for _, o := range s.queues[p] {
		if !o.Item.IsShip() {
			n++
		}
	}
	return n
}

func (s *ConstructionSystem) queueBuilding(c event.BuildStructure, emit event.Emitter) error {
	const op = "construction.build"
	p, err := s.deps.ownedPlanet(op, c.Faction, c.Planet)
	if err != nil {
		return err
	}
	if !p.Controlled() {
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "uncontrolled planets cannot build")
	}
	def, ok := s.deps.Rules.Building(c.Building)
	if !ok {
		return errs.Invalid(op, "unknown building %q", c.Building)
	}
	slots := s.deps.Rules.Planets.Slots.Slots(p.Population)
	if used := len(p.Buildings) + s.queuedBuildings(p.ID); used >= slots {
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "no free slot (%d/%d)", used, slots)
	}
	return s.accept(p, world.OrderItem{Building: c.Building}, def.Cost, def.BuildTicks, emit)
}

func (s *ConstructionSystem) queueShip(c event.ConstructShip, emit event.Emitter) error {
	const op = "construction.ship"
	p, err := s.deps.ownedPlanet(op, c.Faction, c.Planet)
	if err != nil {
		return err
	}
	if !p.Controlled() {
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "uncontrolled planets cannot build")
	}
	def, ok := s.deps.Rules.ShipClass(c.Class)
	if !ok {
		return errs.Invalid(op, "unknown ship class %q", c.Class)
	}
	if def.Requires != "" && p.CountBuildings(def.Requires) == 0 {
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "%s needs a %s", c.Class, def.Requires)
	}
	return s.accept(p, world.OrderItem{Ship: c.Class}, def.Cost, def.BuildTicks, emit)
}

// accept pays for the order and appends it. A failed payment leaves the
// queue untouched.
func (s *ConstructionSystem) accept(p world.Planet, item world.OrderItem, cost world.ResourceBundle, ticks uint64, emit event.Emitter) error {
	if ticks == 0 {
		ticks = 1
	}
	if err := s.deps.Planets.RemoveResources(p.ID, cost); err != nil {
		return err
	}
	o := world.ConstructionOrder{
		ID:        s.nextID,
		Planet:    p.ID,
		Owner:     p.Controller,
		Item:      item,
		Total:     ticks,
		Remaining: ticks,
	}
	s.nextID++
	s.queues[p.ID] = append(s.queues[p.ID], o)
	emit.Queue(event.ConstructionQueued{Planet: p.ID, Order: o.ID, Item: item, Ticks: ticks})
	return nil
}

func (s *ConstructionSystem) cancel(c event.CancelConstruction, emit event.Emitter) error {
	const op = "construction.cancel"
	if _, err := s.deps.ownedPlanet(op, c.Faction, c.Planet); err != nil {
		return err
	}
	q := s.queues[c.Planet]
	for i, o := range q {
		if o.ID != c.Order {
			continue
		}
		if o.Started() {
			return errs.Invalid(op, "order %d already under construction", o.ID)
		}
		s.queues[c.Planet] = append(q[:i:i], q[i+1:]...)
		emit.Queue(event.ConstructionCancelled{Planet: c.Planet, Order: o.ID, Item: o.Item})
		return nil
	}
	return errs.Invalid(op, "no order %d on planet %d", c.Order, c.Planet)
}

func (s *ConstructionSystem) planets() []world.PlanetID {
	ids := make([]world.PlanetID, 0, len(s.queues))
	for id, q := range s.queues {
		if len(q) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *ConstructionSystem) advance(tick uint64, emit event.Emitter) error {
	for _, pid := range s.planets() {
		p, err := s.deps.Planets.Get(pid)
		if err != nil {
			delete(s.queues, pid)
			continue
		}
		q := s.queues[pid]
		q[0].Remaining--
		if q[0].Remaining > 0 {
			continue
		}
		done := q[0]
		s.queues[pid] = q[1:]
		if len(s.queues[pid]) == 0 {
			delete(s.queues, pid)
		}
		switch {
		case done.Item.IsShip() && p.Controller == 0:
			emit.Queue(event.ConstructionCancelled{Planet: pid, Order: done.ID, Item: done.Item})
		case done.Item.IsShip():
			// Ships go to whoever holds the yard now, not whoever ordered them.
			emit.Queue(event.ShipCompleted{
				Planet:   pid,
				Order:    done.ID,
				Class:    done.Item.Ship,
				Owner:    p.Controller,
				Position: s.deps.planetPosition(p, tick),
			})
		default:
			emit.Queue(event.ConstructionCompleted{Planet: pid, Order: done.ID, Building: done.Item.Building})
		}
	}
	return nil
}

// Orders returns every queued order, by planet then queue position.
func (s *ConstructionSystem) Orders() ([]world.ConstructionOrder, uint64) {
	var out []world.ConstructionOrder
	for _, pid := range s.planets() {
		out = append(out, s.queues[pid]...)
	}
	return out, s.nextID
}

// Restore replaces every queue.
func (s *ConstructionSystem) Restore(orders []world.ConstructionOrder, next uint64) error {
	queues := make(map[world.PlanetID][]world.ConstructionOrder)
	for _, o := range orders {
		if o.Remaining == 0 || o.Remaining > o.Total {
			return errs.Invalid("construction.restore", "order %d has %d/%d ticks left", o.ID, o.Remaining, o.Total)
		}
		if o.ID >= next {
			next = o.ID + 1
		}
		queues[o.Planet] = append(queues[o.Planet], o)
	}
	if next == 0 {
		next = 1
	}
	s.queues = queues
	s.nextID = next
	return nil
}
