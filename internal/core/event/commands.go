package event

import "github.com/stellardominion/server/internal/world"

// Commands carry the issuing faction. Faction zero is the operator and
// bypasses ownership checks.

type SelectPlanet struct {
	Planet world.PlanetID `json:"planet"`
}

type SelectShip struct {
	Ship world.ShipID `json:"ship"`
}

type BuildStructure struct {
	Faction  world.FactionID    `json:"faction"`
	Planet   world.PlanetID     `json:"planet"`
	Building world.BuildingType `json:"building"`
}

type ConstructShip struct {
	Faction world.FactionID `json:"faction"`
	Planet  world.PlanetID  `json:"planet"`
	Class   world.ShipClass `json:"class"`
}

type CancelConstruction struct {
	Faction world.FactionID `json:"faction"`
	Planet  world.PlanetID  `json:"planet"`
	Order   uint64          `json:"order"`
}

// MoveShip targets either a planet (tracked by intercept) or a fixed point.
type MoveShip struct {
	Faction      world.FactionID `json:"faction"`
	Ship         world.ShipID    `json:"ship"`
	Target       world.Vector2   `json:"target"`
	TargetPlanet world.PlanetID  `json:"target_planet,omitempty"`
}

type TransferResources struct {
	Faction world.FactionID      `json:"faction"`
	From    world.PlanetID       `json:"from"`
	To      world.PlanetID       `json:"to"`
	Amount  world.ResourceBundle `json:"amount"`
}

type LoadCargo struct {
	Faction world.FactionID      `json:"faction"`
	Ship    world.ShipID         `json:"ship"`
	Amount  world.ResourceBundle `json:"amount"`
}

type UnloadCargo struct {
	Faction world.FactionID `json:"faction"`
	Ship    world.ShipID    `json:"ship"`
}

type AllocateWorkers struct {
	Faction world.FactionID        `json:"faction"`
	Planet  world.PlanetID         `json:"planet"`
	Workers world.WorkerAllocation `json:"workers"`
}

// AttackTarget engages a planet or a ship co-located with the attacker.
type AttackTarget struct {
	Faction      world.FactionID `json:"faction"`
	Ship         world.ShipID    `json:"ship"`
	TargetPlanet world.PlanetID  `json:"target_planet,omitempty"`
	TargetShip   world.ShipID    `json:"target_ship,omitempty"`
}

type ColonizePlanet struct {
	Faction world.FactionID `json:"faction"`
	Ship    world.ShipID    `json:"ship"`
	Planet  world.PlanetID  `json:"planet"`
}

type SetSpeed struct {
	Speed float64 `json:"speed"`
}

type Pause struct {
	Paused bool `json:"paused"`
}

type Save struct {
	Slot string `json:"slot"`
}

type Load struct {
	Slot string `json:"slot"`
}

type NewGame struct{}

type Exit struct{}

func (SelectPlanet) Kind() Kind       { return KindSelectPlanet }
func (SelectShip) Kind() Kind         { return KindSelectShip }
func (BuildStructure) Kind() Kind     { return KindBuildStructure }
func (ConstructShip) Kind() Kind      { return KindConstructShip }
func (CancelConstruction) Kind() Kind { return KindCancelConstruction }
func (MoveShip) Kind() Kind           { return KindMoveShip }
func (TransferResources) Kind() Kind  { return KindTransferResources }
func (LoadCargo) Kind() Kind          { return KindLoadCargo }
func (UnloadCargo) Kind() Kind        { return KindUnloadCargo }
func (AllocateWorkers) Kind() Kind    { return KindAllocateWorkers }
func (AttackTarget) Kind() Kind       { return KindAttackTarget }
func (ColonizePlanet) Kind() Kind     { return KindColonizePlanet }
func (SetSpeed) Kind() Kind           { return KindSetSpeed }
func (Pause) Kind() Kind              { return KindPause }
func (Save) Kind() Kind               { return KindSave }
func (Load) Kind() Kind               { return KindLoad }
func (NewGame) Kind() Kind            { return KindNewGame }
func (Exit) Kind() Kind               { return KindExit }

// CommandFaction returns the issuing faction of a command, zero when the
// command has none.
func CommandFaction(ev Event) world.FactionID {
	switch c := ev.(type) {
	case BuildStructure:
		return c.Faction
	case ConstructShip:
		return c.Faction
	case CancelConstruction:
		return c.Faction
	case MoveShip:
		return c.Faction
	case TransferResources:
		return c.Faction
	case LoadCargo:
		return c.Faction
	case UnloadCargo:
		return c.Faction
	case AllocateWorkers:
		return c.Faction
	case AttackTarget:
		return c.Faction
	case ColonizePlanet:
		return c.Faction
	}
	return 0
}
