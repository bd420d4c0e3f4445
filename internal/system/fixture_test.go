package system

import (
	"testing"

	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/manager"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct{ events []event.Event }

func (r *recorder) Queue(ev event.Event) { r.events = append(r.events, ev) }

func (r *recorder) of(k event.Kind) []event.Event {
	var out []event.Event
	for _, ev := range r.events {
		if ev.Kind() == k {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

type testClock struct{ tick uint64 }

func (c *testClock) Tick() uint64 { return c.tick }

type fixture struct {
	deps  *Deps
	rec   *recorder
	clock *testClock
	alpha world.FactionID
	beta  world.FactionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := data.MustDefault()
	rec := &recorder{}
	clock := &testClock{}
	f := &fixture{
		deps: &Deps{
			Planets:  manager.NewPlanets(rules, rec),
			Ships:    manager.NewShips(rules, rec),
			Factions: manager.NewFactions(rules, rec),
			Rules:    rules,
			Clock:    clock,
			Log:      zap.NewNop(),
		},
		rec:   rec,
		clock: clock,
	}
	var err error
	f.alpha, err = f.deps.Factions.Create("Alpha", true, "")
	require.NoError(t, err)
	f.beta, err = f.deps.Factions.Create("Beta", false, "aggressive")
	require.NoError(t, err)
	rec.reset()
	return f
}

func (f *fixture) planet(t *testing.T, p world.Planet) world.PlanetID {
	t.Helper()
	id, err := f.deps.Planets.Create(p)
	require.NoError(t, err)
	f.rec.reset()
	return id
}

func (f *fixture) ship(t *testing.T, s world.Ship) world.ShipID {
	t.Helper()
	def, ok := f.deps.Rules.ShipClass(s.Class)
	require.True(t, ok)
	if s.FuelCapacity == 0 {
		s.FuelCapacity = def.FuelCapacity
		s.Fuel = def.FuelCapacity
	}
	s.CargoCapacity = def.CargoCapacity
	id, err := f.deps.Ships.Create(s)
	require.NoError(t, err)
	f.rec.reset()
	return id
}

// fleet parks n ships of class c for owner at pos.
func (f *fixture) fleet(t *testing.T, owner world.FactionID, c world.ShipClass, n int, pos world.Vector2) []world.ShipID {
	t.Helper()
	ids := make([]world.ShipID, n)
	for i := range ids {
		ids[i] = f.ship(t, world.Ship{Class: c, Owner: owner, Position: pos})
	}
	return ids
}

// deliver hands ev to the managers the way the bus routes it.
func (f *fixture) deliver(t *testing.T, ev event.Event) {
	t.Helper()
	require.NoError(t, f.deps.Planets.HandleEvent(ev, f.rec))
	require.NoError(t, f.deps.Ships.HandleEvent(ev, f.rec))
	require.NoError(t, f.deps.Factions.HandleEvent(ev, f.rec))
}

func (f *fixture) get(t *testing.T, id world.PlanetID) world.Planet {
	t.Helper()
	p, err := f.deps.Planets.Get(id)
	require.NoError(t, err)
	return p
}

func staffedMine(pop, miners int64) world.WorkerAllocation {
	w := world.Idle(pop)
	w[world.Mining] = miners
	w[world.Unassigned] -= miners
	return w
}
