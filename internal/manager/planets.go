// Package manager holds the exclusive owners of the entity collections.
// Every write goes through a named mutation that validates first, applies
// to a working copy, re-checks the invariants and only then commits.
// Accessed only from the game loop goroutine; no locks needed.
package manager

import (
	"github.com/stellardominion/server/internal/core/entity"
	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/world"
)

// Planets owns every planet.
type Planets struct {
	store  *entity.Store[world.Planet]
	seq    *entity.Sequence
	rules  *data.Rules
	notify event.Emitter
}

func NewPlanets(rules *data.Rules, notify event.Emitter) *Planets {
	return &Planets{
		store:  entity.NewStore[world.Planet](),
		seq:    entity.NewSequence(),
		rules:  rules,
		notify: notify,
	}
}

func (m *Planets) Component() event.ComponentID { return event.PlanetManager }

// Get returns a copy of the planet.
func (m *Planets) Get(id world.PlanetID) (world.Planet, error) {
	p, ok := m.store.Get(entity.ID(id))
	if !ok {
		return world.Planet{}, errs.NotFound("planet.get", "planet", uint64(id))
	}
	return p.Clone(), nil
}

func (m *Planets) Has(id world.PlanetID) bool { return m.store.Has(entity.ID(id)) }

func (m *Planets) Len() int { return m.store.Len() }

// All returns copies of every planet in ascending ID order.
func (m *Planets) All() []world.Planet {
	out := make([]world.Planet, 0, m.store.Len())
	m.store.Each(func(_ entity.ID, p *world.Planet) {
		out = append(out, p.Clone())
	})
	return out
}

// IDs returns live planet IDs in ascending order.
func (m *Planets) IDs() []world.PlanetID {
	ids := m.store.IDs()
	out := make([]world.PlanetID, len(ids))
	for i, id := range ids {
		out[i] = world.PlanetID(id)
	}
	return out
}

// ControlledBy returns the planets controlled by f.
func (m *Planets) ControlledBy(f world.FactionID) []world.Planet {
	var out []world.Planet
	m.store.Each(func(_ entity.ID, p *world.Planet) {
		if p.Controller == f {
			out = append(out, p.Clone())
		}
	})
	return out
}

// Slots returns the building slots of a planet at its current population.
func (m *Planets) Slots(id world.PlanetID) (int, error) {
	p, ok := m.store.Get(entity.ID(id))
	if !ok {
		return 0, errs.NotFound("planet.slots", "planet", uint64(id))
	}
	return m.rules.Planets.Slots.Slots(p.Population), nil
}

// MinUnassigned is the worker reserve for a population.
func (m *Planets) MinUnassigned(pop int64) int64 {
	return m.rules.Population.MinUnassigned.Of(pop)
}

// Create registers a new planet and returns its identifier. Zero capacity
// falls back to the rules default; the initial workforce is all unassigned
// when none is given.
func (m *Planets) Create(p world.Planet) (world.PlanetID, error) {
	const op = "planet.create"
	if p.Capacity.IsZero() {
		p.Capacity = m.rules.Planets.Capacity
	}
	if p.Workers.Sum() == 0 {
		p.Workers = world.Idle(p.Population)
	}
	p.ID = world.PlanetID(m.seq.Peek())
	p.Buildings = append([]world.Building(nil), p.Buildings...)
	if err := p.CheckInvariants(m.rules.Planets.Slots); err != nil {
		return 0, errs.InvalidEntity(op, "planet", uint64(p.ID), "%v", err)
	}
	m.seq.Next()
	m.store.Set(entity.ID(p.ID), &p)
	m.changed(&p)
	return p.ID, nil
}

// mutate runs fn on a working copy and commits it only when fn succeeds
// and the copy still satisfies every invariant.
func (m *Planets) mutate(op string, id world.PlanetID, fn func(p *world.Planet) error) error {
	cur, ok := m.store.Get(entity.ID(id))
	if !ok {
		return errs.NotFound(op, "planet", uint64(id))
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.CheckInvariants(m.rules.Planets.Slots); err != nil {
		return errs.Invariant(op, "planet", uint64(id), err)
	}
	*cur = next
	m.changed(cur)
	return nil
}

func (m *Planets) changed(p *world.Planet) {
	if m.notify != nil {
		m.notify.Queue(event.PlanetUpdated{Planet: p.Clone()})
	}
}

// AddResources stores b in full or fails; it never clamps to capacity.
func (m *Planets) AddResources(id world.PlanetID, b world.ResourceBundle) error {
	const op = "planet.add_resources"
	return m.mutate(op, id, func(p *world.Planet) error {
		if !b.NonNegative() {
			return errs.InvalidEntity(op, "planet", uint64(id), "negative amount %s", b)
		}
		if !p.Resources.Fits(b, p.Capacity) {
			return errs.InvalidEntity(op, "planet", uint64(id), "%s exceeds headroom %s", b, p.Resources.Headroom(p.Capacity))
		}
		sum, err := p.Resources.Add(b)
		if err != nil {
			return errs.InvalidEntity(op, "planet", uint64(id), "%v", err)
		}
		p.Resources = sum
		return nil
	})
}

// RemoveResources deducts b atomically.
func (m *Planets) RemoveResources(id world.PlanetID, b world.ResourceBundle) error {
	const op = "planet.remove_resources"
	return m.mutate(op, id, func(p *world.Planet) error {
		rest, err := p.Resources.Sub(b)
		if err != nil {
			return errs.InvalidEntity(op, "planet", uint64(id), "%v", err)
		}
		p.Resources = rest
		return nil
	})
}

// ConsumeFood feeds the population.
func (m *Planets) ConsumeFood(id world.PlanetID, amount int64) error {
	const op = "planet.consume_food"
	return m.mutate(op, id, func(p *world.Planet) error {
		if amount < 0 {
			return errs.InvalidEntity(op, "planet", uint64(id), "negative food %d", amount)
		}
		if p.Resources[world.Food] < amount {
			return errs.InvalidEntity(op, "planet", uint64(id), "food %d < %d", p.Resources[world.Food], amount)
		}
		p.Resources[world.Food] -= amount
		return nil
	})
}

// Transfer moves amount between two planets, both sides or neither.
func (m *Planets) Transfer(from, to world.PlanetID, amount world.ResourceBundle) error {
	const op = "planet.transfer"
	if from == to {
		return errs.Invalid(op, "source and destination are both planet %d", from)
	}
	src, ok := m.store.Get(entity.ID(from))
	if !ok {
		return errs.NotFound(op, "planet", uint64(from))
	}
	dst, ok := m.store.Get(entity.ID(to))
	if !ok {
		return errs.NotFound(op, "planet", uint64(to))
	}
	if amount.IsZero() || !amount.NonNegative() {
		return errs.Invalid(op, "transfer amount %s must be positive", amount)
	}
	if !src.Resources.CanAfford(amount) {
		return errs.InvalidEntity(op, "planet", uint64(from), "cannot afford %s from %s", amount, src.Resources)
	}
	if !dst.Resources.Fits(amount, dst.Capacity) {
		return errs.InvalidEntity(op, "planet", uint64(to), "%s exceeds headroom %s", amount, dst.Resources.Headroom(dst.Capacity))
	}
	if err := m.RemoveResources(from, amount); err != nil {
		return err
	}
	return m.AddResources(to, amount)
}

// SetWorkerAllocation replaces the workforce partition. The allocation must
// cover the whole population and keep the unassigned reserve.
func (m *Planets) SetWorkerAllocation(id world.PlanetID, w world.WorkerAllocation) error {
	const op = "planet.set_workers"
	return m.mutate(op, id, func(p *world.Planet) error {
		if !w.NonNegative() {
			return errs.InvalidEntity(op, "planet", uint64(id), "negative worker category")
		}
		if sum := w.Sum(); sum != p.Population {
			return errs.InvalidEntity(op, "planet", uint64(id), "allocation sums to %d, population is %d", sum, p.Population)
		}
		if reserve := m.MinUnassigned(p.Population); w[world.Unassigned] < reserve {
			return errs.InvalidEntity(op, "planet", uint64(id), "%d unassigned, at least %d required", w[world.Unassigned], reserve)
		}
		p.Workers = w
		return nil
	})
}

// AddBuilding appends a completed building. Storage buildings raise
// capacity.
func (m *Planets) AddBuilding(id world.PlanetID, b world.Building) error {
	const op = "planet.add_building"
	return m.mutate(op, id, func(p *world.Planet) error {
		def, ok := m.rules.Building(b.Type)
		if !ok {
			return errs.InvalidEntity(op, "planet", uint64(id), "unknown building %q", b.Type)
		}
		if b.Tier < 1 {
			return errs.InvalidEntity(op, "planet", uint64(id), "building tier %d < 1", b.Tier)
		}
		if n, slots := len(p.Buildings), m.rules.Planets.Slots.Slots(p.Population); n >= slots {
			return errs.InvalidEntity(op, "planet", uint64(id), "no free slot (%d/%d)", n, slots)
		}
		p.Buildings = append(p.Buildings, b)
		if !def.Storage.IsZero() {
			capacity, err := p.Capacity.Add(def.Storage.Scaled(int64(b.Tier)))
			if err != nil {
				return errs.InvalidEntity(op, "planet", uint64(id), "%v", err)
			}
			p.Capacity = capacity
		}
		return nil
	})
}

// ChangePopulation grows (delta > 0) into the unassigned pool, or shrinks
// taking unassigned workers first and then the other categories from the
// last labor kind backwards.
func (m *Planets) ChangePopulation(id world.PlanetID, delta int64) error {
	const op = "planet.change_population"
	return m.mutate(op, id, func(p *world.Planet) error {
		if delta >= 0 {
			p.Population += delta
			p.Workers[world.Unassigned] += delta
			return nil
		}
		loss := -delta
		if loss > p.Population {
			return errs.InvalidEntity(op, "planet", uint64(id), "loss %d > population %d", loss, p.Population)
		}
		if need := m.rules.Planets.Slots.MinPopulation(len(p.Buildings)); p.Population-loss < need {
			return errs.InvalidEntity(op, "planet", uint64(id), "population %d cannot staff %d buildings", p.Population-loss, len(p.Buildings))
		}
		p.Population -= loss
		for l := world.Unassigned; l >= 0 && loss > 0; l-- {
			take := min(p.Workers[l], loss)
			p.Workers[l] -= take
			loss -= take
		}
		return nil
	})
}

// SetController changes which faction holds the planet.
func (m *Planets) SetController(id world.PlanetID, f world.FactionID) error {
	const op = "planet.set_controller"
	return m.mutate(op, id, func(p *world.Planet) error {
		if p.Controller == f {
			return errs.InvalidEntity(op, "planet", uint64(id), "already controlled by faction %d", f)
		}
		p.Controller = f
		return nil
	})
}

// Colonize hands an uncontrolled planet to f along with its colonists.
func (m *Planets) Colonize(id world.PlanetID, f world.FactionID, colonists int64) error {
	const op = "planet.colonize"
	return m.mutate(op, id, func(p *world.Planet) error {
		if p.Controlled() {
			return errs.InvalidEntity(op, "planet", uint64(id), "controlled by faction %d", p.Controller)
		}
		if f == 0 || colonists < 0 {
			return errs.InvalidEntity(op, "planet", uint64(id), "bad colony (faction %d, %d colonists)", f, colonists)
		}
		p.Controller = f
		p.Population += colonists
		p.Workers[world.Unassigned] += colonists
		return nil
	})
}

// HandleEvent applies the simulation outcomes the planet manager owns.
func (m *Planets) HandleEvent(ev event.Event, _ event.Emitter) error {
	switch e := ev.(type) {
	case event.ConstructionCompleted:
		return m.AddBuilding(e.Planet, world.Building{Type: e.Building, Tier: 1, Operational: true})
	case event.PopulationGrowth:
		return m.ChangePopulation(e.Planet, e.Delta)
	case event.PlanetConquered:
		return m.SetController(e.Planet, e.To)
	case event.PlanetColonized:
		return m.Colonize(e.Planet, e.Faction, e.Colonists)
	}
	return nil
}

// Snapshot returns every planet plus the next identifier.
func (m *Planets) Snapshot() ([]world.Planet, world.PlanetID) {
	return m.All(), world.PlanetID(m.seq.Peek())
}

// Restore replaces the collection. Every planet must be valid; on error
// the manager is left untouched.
func (m *Planets) Restore(planets []world.Planet, next world.PlanetID) error {
	const op = "planet.restore"
	fresh := entity.NewStore[world.Planet]()
	for i := range planets {
		p := planets[i].Clone()
		if p.ID == 0 || fresh.Has(entity.ID(p.ID)) {
			return errs.InvalidEntity(op, "planet", uint64(p.ID), "duplicate or zero id")
		}
		if err := p.CheckInvariants(m.rules.Planets.Slots); err != nil {
			return errs.InvalidEntity(op, "planet", uint64(p.ID), "%v", err)
		}
		fresh.Set(entity.ID(p.ID), &p)
	}
	m.store = fresh
	m.seq.Restore(entity.ID(next), fresh.MaxID())
	return nil
}
