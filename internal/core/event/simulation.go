package event

import "github.com/stellardominion/server/internal/world"

type TickCompleted struct {
	Tick uint64
}

type ResourcesProduced struct {
	Planet   world.PlanetID
	Produced world.ResourceBundle
	Consumed world.ResourceBundle
}

// ResourceShortage reports upkeep that could not be paid in full.
type ResourceShortage struct {
	Planet    world.PlanetID
	Shortfall world.ResourceBundle
}

// StorageCapped reports production discarded for lack of storage.
type StorageCapped struct {
	Planet    world.PlanetID
	Discarded world.ResourceBundle
}

// PopulationGrowth is applied by the planet manager. Negative deltas are
// starvation losses.
type PopulationGrowth struct {
	Planet world.PlanetID
	Delta  int64
}

type WorkersAllocated struct {
	Planet  world.PlanetID
	Workers world.WorkerAllocation
}

type ConstructionQueued struct {
	Planet world.PlanetID
	Order  uint64
	Item   world.OrderItem
	Ticks  uint64
}

type ConstructionCancelled struct {
	Planet world.PlanetID
	Order  uint64
	Item   world.OrderItem
}

type ConstructionCompleted struct {
	Planet   world.PlanetID
	Order    uint64
	Building world.BuildingType
}

// ShipCompleted spawns a ship docked at Planet, which sits at Position.
type ShipCompleted struct {
	Planet   world.PlanetID
	Order    uint64
	Class    world.ShipClass
	Owner    world.FactionID
	Position world.Vector2
}

type ShipDeparted struct {
	Ship       world.ShipID
	Trajectory world.Trajectory
}

// ShipArrived and FuelExhausted name the trajectory they end by its
// departure tick; a newer order on the same ship leaves them stale.
type ShipArrived struct {
	Ship      world.ShipID
	Departure uint64
	Position  world.Vector2
	Planet    world.PlanetID
}

type FuelExhausted struct {
	Ship      world.ShipID
	Departure uint64
	Position  world.Vector2
}

type CargoTransferred struct {
	Ship   world.ShipID
	Planet world.PlanetID
	Amount world.ResourceBundle
	Loaded bool
}

type ResourcesTransferred struct {
	From   world.PlanetID
	To     world.PlanetID
	Amount world.ResourceBundle
}

type BattleTriggered struct {
	Battle   uint64
	Assault  bool
	Planet   world.PlanetID
	Position world.Vector2
	Attacker world.FactionID
	Defender world.FactionID
}

// CombatResolved is applied by the ship manager (Destroyed) and the
// faction manager (score).
type CombatResolved struct {
	Battle           uint64
	Planet           world.PlanetID
	Attacker         world.FactionID
	Defender         world.FactionID
	Winner           world.FactionID
	AttackerStrength int64
	DefenderStrength int64
	AttackerLosses   int
	DefenderLosses   int
	Destroyed        []world.ShipID
}

type PlanetConquered struct {
	Planet world.PlanetID
	From   world.FactionID
	To     world.FactionID
}

type PlanetColonized struct {
	Planet    world.PlanetID
	Ship      world.ShipID
	Faction   world.FactionID
	Colonists int64
}

// CommandRejected carries a failed command back through the bus.
type CommandRejected struct {
	Command Event
	By      ComponentID
	Reason  string
}

type GameLoaded struct {
	Slot string
	Tick uint64
}

func (TickCompleted) Kind() Kind         { return KindTickCompleted }
func (ResourcesProduced) Kind() Kind     { return KindResourcesProduced }
func (ResourceShortage) Kind() Kind      { return KindResourceShortage }
func (StorageCapped) Kind() Kind         { return KindStorageCapped }
func (PopulationGrowth) Kind() Kind      { return KindPopulationGrowth }
func (WorkersAllocated) Kind() Kind      { return KindWorkersAllocated }
func (ConstructionQueued) Kind() Kind    { return KindConstructionQueued }
func (ConstructionCancelled) Kind() Kind { return KindConstructionCancelled }
func (ConstructionCompleted) Kind() Kind { return KindConstructionCompleted }
func (ShipCompleted) Kind() Kind         { return KindShipCompleted }
func (ShipDeparted) Kind() Kind          { return KindShipDeparted }
func (ShipArrived) Kind() Kind           { return KindShipArrived }
func (FuelExhausted) Kind() Kind         { return KindFuelExhausted }
func (CargoTransferred) Kind() Kind      { return KindCargoTransferred }
func (ResourcesTransferred) Kind() Kind  { return KindResourcesTransferred }
func (BattleTriggered) Kind() Kind       { return KindBattleTriggered }
func (CombatResolved) Kind() Kind        { return KindCombatResolved }
func (PlanetConquered) Kind() Kind       { return KindPlanetConquered }
func (PlanetColonized) Kind() Kind       { return KindPlanetColonized }
func (CommandRejected) Kind() Kind       { return KindCommandRejected }
func (GameLoaded) Kind() Kind            { return KindGameLoaded }
