package system

import (
	"testing"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionCapsAtStorage(t *testing.T) {
	f := newFixture(t)
	id := f.planet(t, world.Planet{
		Population: 100,
		Workers:    staffedMine(100, 10),
		Capacity:   world.Bundle(world.Minerals, 5),
		Buildings:  []world.Building{{Type: "mine", Tier: 1, Operational: true}},
		Controller: f.alpha,
	})
	sys := NewResourceSystem(f.deps)

	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))

	assert.EqualValues(t, 5, f.get(t, id).Resources[world.Minerals])
	capped := f.rec.of(event.KindStorageCapped)
	require.Len(t, capped, 1)
	assert.Equal(t, world.Bundle(world.Minerals, 5), capped[0].(event.StorageCapped).Discarded)

	f.rec.reset()
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 2}, f.rec))
	assert.EqualValues(t, 5, f.get(t, id).Resources[world.Minerals])
	assert.Len(t, f.rec.of(event.KindStorageCapped), 1)
	assert.Empty(t, f.rec.of(event.KindResourcesProduced))
}

func TestUpkeepShortfallIsReported(t *testing.T) {
	f := newFixture(t)
	w := world.Idle(100)
	w[world.Industry] = 10
	w[world.Unassigned] = 90
	id := f.planet(t, world.Planet{
		Population: 100,
		Workers:    w,
		Resources:  world.Bundle(world.Minerals, 4),
		Buildings:  []world.Building{{Type: "factory", Tier: 1, Operational: true}},
		Controller: f.alpha,
	})

	require.NoError(t, NewResourceSystem(f.deps).HandleEvent(event.TickCompleted{Tick: 1}, f.rec))

	p := f.get(t, id)
	assert.EqualValues(t, 10, p.Resources[world.Alloys])
	assert.Zero(t, p.Resources[world.Minerals])
	short := f.rec.of(event.KindResourceShortage)
	require.Len(t, short, 1)
	assert.Equal(t, world.Bundle(world.Minerals, 6), short[0].(event.ResourceShortage).Shortfall)
}

func TestTransferBetweenOwnPlanets(t *testing.T) {
	f := newFixture(t)
	a := f.planet(t, world.Planet{Resources: world.Bundle(world.Food, 100), Controller: f.alpha})
	b := f.planet(t, world.Planet{Controller: f.alpha})
	enemy := f.planet(t, world.Planet{Controller: f.beta})
	sys := NewResourceSystem(f.deps)

	err := sys.HandleEvent(event.TransferResources{Faction: f.alpha, From: a, To: enemy, Amount: world.Bundle(world.Food, 10)}, f.rec)
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)

	require.NoError(t, sys.HandleEvent(event.TransferResources{Faction: f.alpha, From: a, To: b, Amount: world.Bundle(world.Food, 40)}, f.rec))
	assert.EqualValues(t, 60, f.get(t, a).Resources[world.Food])
	assert.EqualValues(t, 40, f.get(t, b).Resources[world.Food])
	assert.Len(t, f.rec.of(event.KindResourcesTransferred), 1)
}

func TestCargoRoundTrip(t *testing.T) {
	f := newFixture(t)
	home := f.planet(t, world.Planet{Resources: world.Bundle(world.Minerals, 300), Controller: f.alpha})
	hauler := f.ship(t, world.Ship{Class: "transport", Owner: f.alpha, Docked: home})
	sys := NewResourceSystem(f.deps)

	err := sys.HandleEvent(event.LoadCargo{Faction: f.alpha, Ship: hauler, Amount: world.Bundle(world.Minerals, 301)}, f.rec)
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)

	require.NoError(t, sys.HandleEvent(event.LoadCargo{Faction: f.alpha, Ship: hauler, Amount: world.Bundle(world.Minerals, 200)}, f.rec))
	assert.EqualValues(t, 100, f.get(t, home).Resources[world.Minerals])
	sh, err := f.deps.Ships.Get(hauler)
	require.NoError(t, err)
	assert.EqualValues(t, 200, sh.Cargo[world.Minerals])

	require.NoError(t, sys.HandleEvent(event.UnloadCargo{Faction: f.alpha, Ship: hauler}, f.rec))
	assert.EqualValues(t, 300, f.get(t, home).Resources[world.Minerals])
	assert.ErrorIs(t, sys.HandleEvent(event.UnloadCargo{Faction: f.alpha, Ship: hauler}, f.rec), errs.ErrInvalidOperation)
}

func TestDockedShipsRefuelFromOwnPlanet(t *testing.T) {
	f := newFixture(t)
	home := f.planet(t, world.Planet{Resources: world.Bundle(world.Fuel, 30), Controller: f.alpha})
	id := f.ship(t, world.Ship{Class: "scout", Owner: f.alpha, Docked: home, Fuel: 150, FuelCapacity: 200})

	require.NoError(t, NewResourceSystem(f.deps).HandleEvent(event.TickCompleted{Tick: 1}, f.rec))

	sh, err := f.deps.Ships.Get(id)
	require.NoError(t, err)
	assert.EqualValues(t, 180, sh.Fuel)
	assert.Zero(t, f.get(t, home).Resources[world.Fuel])
}
