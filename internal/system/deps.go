package system

import (
	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/manager"
	"github.com/stellardominion/server/internal/orbit"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
)

// Clock reports the last completed tick.
type Clock interface {
	Tick() uint64
}

// Deps bundles what every system reads. Systems hold it by pointer; the
// simulation root owns the values.
type Deps struct {
	Planets  *manager.Planets
	Ships    *manager.Ships
	Factions *manager.Factions
	Rules    *data.Rules
	Clock    Clock
	Log      *zap.Logger
}

func (d *Deps) orbitParams() orbit.Params {
	return orbit.Params{FuelPerAU: d.Rules.Movement.FuelPerAU, MinFuelCost: d.Rules.Movement.MinFuelCost}
}

// planetPosition returns where planet p sits at tick.
func (d *Deps) planetPosition(p world.Planet, tick uint64) world.Vector2 {
	return orbit.Position(p.Orbit, tick)
}

// ownedPlanet loads a planet and checks that f controls it. Faction zero
// is the operator and passes.
func (d *Deps) ownedPlanet(op string, f world.FactionID, id world.PlanetID) (world.Planet, error) {
	p, err := d.Planets.Get(id)
	if err != nil {
		return p, err
	}
	if f != 0 && p.Controller != f {
		return p, errs.InvalidEntity(op, "planet", uint64(id), "not controlled by faction %d", f)
	}
	return p, nil
}

// ownedShip loads a ship and checks that f owns it.
func (d *Deps) ownedShip(op string, f world.FactionID, id world.ShipID) (world.Ship, error) {
	s, err := d.Ships.Get(id)
	if err != nil {
		return s, err
	}
	if f != 0 && s.Owner != f {
		return s, errs.InvalidEntity(op, "ship", uint64(id), "not owned by faction %d", f)
	}
	return s, nil
}
