package system

import (
	"testing"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnaffordableOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	res := world.Bundle(world.Minerals, 10, world.Alloys, 100, world.Components, 100)
	id := f.planet(t, world.Planet{Population: 100, Resources: res, Controller: f.alpha})
	sys := NewConstructionSystem(f.deps)

	err := sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "mine"}, f.rec)

	assert.ErrorIs(t, err, errs.ErrInvalidOperation)
	assert.Empty(t, sys.Queue(id))
	assert.Equal(t, res, f.get(t, id).Resources)
	assert.Empty(t, f.rec.events)
}

func TestBuildingCompletesAfterBuildTicks(t *testing.T) {
	f := newFixture(t)
	id := f.planet(t, world.Planet{
		Population: 100,
		Resources:  world.Bundle(world.Minerals, 500, world.Alloys, 100, world.Components, 50),
		Controller: f.alpha,
	})
	sys := NewConstructionSystem(f.deps)

	require.NoError(t, sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "mine"}, f.rec))
	assert.EqualValues(t, 400, f.get(t, id).Resources[world.Minerals])
	require.Len(t, sys.Queue(id), 1)

	def, _ := f.deps.Rules.Building("mine")
	for tick := uint64(1); tick < def.BuildTicks; tick++ {
		require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: tick}, f.rec))
	}
	assert.Empty(t, f.rec.of(event.KindConstructionCompleted))

	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: def.BuildTicks}, f.rec))
	done := f.rec.of(event.KindConstructionCompleted)
	require.Len(t, done, 1)
	assert.Empty(t, sys.Queue(id))

	f.deliver(t, done[0])
	built := f.get(t, id)
	assert.Equal(t, 1, built.CountBuildings("mine"))
}

func TestOnlyQueueHeadProgresses(t *testing.T) {
	f := newFixture(t)
	id := f.planet(t, world.Planet{
		Population: 100,
		Resources:  world.Bundle(world.Minerals, 1000, world.Alloys, 200, world.Components, 50),
		Controller: f.alpha,
	})
	sys := NewConstructionSystem(f.deps)
	require.NoError(t, sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "mine"}, f.rec))
	require.NoError(t, sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "farm"}, f.rec))

	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))

	q := sys.Queue(id)
	require.Len(t, q, 2)
	assert.True(t, q[0].Started())
	assert.False(t, q[1].Started())
}

func TestCancelOnlyBeforeStart(t *testing.T) {
	f := newFixture(t)
	id := f.planet(t, world.Planet{
		Population: 100,
		Resources:  world.Bundle(world.Minerals, 1000, world.Alloys, 200, world.Components, 50),
		Controller: f.alpha,
	})
	sys := NewConstructionSystem(f.deps)
	require.NoError(t, sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "mine"}, f.rec))
	require.NoError(t, sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "farm"}, f.rec))
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))
	q := sys.Queue(id)
	paid := f.get(t, id).Resources

	err := sys.HandleEvent(event.CancelConstruction{Faction: f.alpha, Planet: id, Order: q[0].ID}, f.rec)
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)

	require.NoError(t, sys.HandleEvent(event.CancelConstruction{Faction: f.alpha, Planet: id, Order: q[1].ID}, f.rec))
	assert.Len(t, sys.Queue(id), 1)
	assert.Equal(t, paid, f.get(t, id).Resources, "cancellation does not refund")
}

func TestShipOrderNeedsSpaceport(t *testing.T) {
	f := newFixture(t)
	res := world.Bundle(world.Minerals, 1000, world.Alloys, 200, world.Components, 50)
	bare := f.planet(t, world.Planet{Population: 100, Resources: res, Controller: f.alpha})
	yard := f.planet(t, world.Planet{
		Population: 100,
		Resources:  res,
		Buildings:  []world.Building{{Type: "spaceport", Tier: 1, Operational: true}},
		Controller: f.alpha,
	})
	sys := NewConstructionSystem(f.deps)

	assert.ErrorIs(t, sys.HandleEvent(event.ConstructShip{Faction: f.alpha, Planet: bare, Class: "scout"}, f.rec), errs.ErrInvalidOperation)
	require.NoError(t, sys.HandleEvent(event.ConstructShip{Faction: f.alpha, Planet: yard, Class: "scout"}, f.rec))

	def, _ := f.deps.Rules.ShipClass("scout")
	for tick := uint64(1); tick <= def.BuildTicks; tick++ {
		require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: tick}, f.rec))
	}
	done := f.rec.of(event.KindShipCompleted)
	require.Len(t, done, 1)
	f.deliver(t, done[0])

	ships := f.deps.Ships.DockedAt(yard)
	require.Len(t, ships, 1)
	assert.Equal(t, f.alpha, ships[0].Owner)
}

func TestShipFromConqueredYardGoesToNewOwner(t *testing.T) {
	f := newFixture(t)
	yard := f.planet(t, world.Planet{
		Population: 100,
		Resources:  world.Bundle(world.Minerals, 1000, world.Alloys, 200),
		Buildings:  []world.Building{{Type: "spaceport", Tier: 1, Operational: true}},
		Controller: f.alpha,
	})
	sys := NewConstructionSystem(f.deps)
	require.NoError(t, sys.HandleEvent(event.ConstructShip{Faction: f.alpha, Planet: yard, Class: "scout"}, f.rec))
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))

	f.deliver(t, event.PlanetConquered{Planet: yard, From: f.alpha, To: f.beta})
	f.rec.reset()

	def, _ := f.deps.Rules.ShipClass("scout")
	for tick := uint64(2); tick <= def.BuildTicks; tick++ {
		require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: tick}, f.rec))
	}
	done := f.rec.of(event.KindShipCompleted)
	require.Len(t, done, 1)
	assert.Equal(t, f.beta, done[0].(event.ShipCompleted).Owner)
	f.deliver(t, done[0])

	ships := f.deps.Ships.DockedAt(yard)
	require.Len(t, ships, 1)
	assert.Equal(t, f.beta, ships[0].Owner)
}

func TestConstructionSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	id := f.planet(t, world.Planet{
		Population: 100,
		Resources:  world.Bundle(world.Minerals, 1000, world.Alloys, 200, world.Components, 50),
		Controller: f.alpha,
	})
	sys := NewConstructionSystem(f.deps)
	require.NoError(t, sys.HandleEvent(event.BuildStructure{Faction: f.alpha, Planet: id, Building: "mine"}, f.rec))
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))
	orders, next := sys.Orders()

	other := NewConstructionSystem(f.deps)
	require.NoError(t, other.Restore(orders, next))
	got, gotNext := other.Orders()
	assert.Equal(t, orders, got)
	assert.Equal(t, next, gotNext)

	bad := append([]world.ConstructionOrder(nil), orders...)
	bad[0].Remaining = 0
	assert.Error(t, other.Restore(bad, next))
}
