package event

import "fmt"

// Class is the top-level variant of an event.
type Class uint8

const (
	ClassCommand     Class = iota // external intent
	ClassSimulation               // computed outcome
	ClassStateChange              // observer notification
)

func (c Class) String() string {
	switch c {
	case ClassCommand:
		return "command"
	case ClassSimulation:
		return "simulation"
	case ClassStateChange:
		return "state_change"
	}
	return fmt.Sprintf("class(%d)", c)
}

// Kind tags a concrete event type. Kinds are grouped by class: commands
// first, then simulation events, then state changes.
type Kind uint16

const (
	// Commands.
	KindSelectPlanet Kind = iota
	KindSelectShip
	KindBuildStructure
	KindConstructShip
	KindCancelConstruction
	KindMoveShip
	KindTransferResources
	KindLoadCargo
	KindUnloadCargo
	KindAllocateWorkers
	KindAttackTarget
	KindColonizePlanet
	KindSetSpeed
	KindPause
	KindSave
	KindLoad
	KindNewGame
	KindExit

	// Simulation events.
	KindTickCompleted
	KindResourcesProduced
	KindResourceShortage
	KindStorageCapped
	KindPopulationGrowth
	KindWorkersAllocated
	KindConstructionQueued
	KindConstructionCancelled
	KindConstructionCompleted
	KindShipCompleted
	KindShipDeparted
	KindShipArrived
	KindFuelExhausted
	KindCargoTransferred
	KindResourcesTransferred
	KindBattleTriggered
	KindCombatResolved
	KindPlanetConquered
	KindPlanetColonized
	KindCommandRejected
	KindGameLoaded

	// State changes.
	KindPlanetUpdated
	KindShipUpdated
	KindShipDestroyed
	KindFactionUpdated
	KindSelected
	KindCommandFailed
	KindSpeedChanged
	KindPauseChanged
	KindGameSaved
	KindGameReset

	NumKinds
)

const (
	firstSimulation  = KindTickCompleted
	firstStateChange = KindPlanetUpdated
)

var kindNames = [NumKinds]string{
	"select_planet", "select_ship", "build_structure", "construct_ship",
	"cancel_construction", "move_ship", "transfer_resources", "load_cargo",
	"unload_cargo", "allocate_workers", "attack_target", "colonize_planet",
	"set_speed", "pause", "save", "load", "new_game", "exit",

	"tick_completed", "resources_produced", "resource_shortage", "storage_capped",
	"population_growth", "workers_allocated", "construction_queued",
	"construction_cancelled", "construction_completed", "ship_completed",
	"ship_departed", "ship_arrived", "fuel_exhausted", "cargo_transferred",
	"resources_transferred", "battle_triggered", "combat_resolved",
	"planet_conquered", "planet_colonized", "command_rejected", "game_loaded",

	"planet_updated", "ship_updated", "ship_destroyed", "faction_updated",
	"selected", "command_failed", "speed_changed", "pause_changed",
	"game_saved", "game_reset",
}

func (k Kind) String() string {
	if k >= NumKinds {
		return fmt.Sprintf("kind(%d)", k)
	}
	return kindNames[k]
}

// ParseKind maps a wire name back to its kind.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

func (k Kind) Class() Class {
	switch {
	case k < firstSimulation:
		return ClassCommand
	case k < firstStateChange:
		return ClassSimulation
	}
	return ClassStateChange
}

// Event is an immutable tagged value. Concrete events are small value
// structs; any slice they carry must not be modified after queueing.
type Event interface {
	Kind() Kind
}

// IsCommand reports whether ev originated outside the simulation.
func IsCommand(ev Event) bool { return ev.Kind().Class() == ClassCommand }

// Emitter accepts events for delivery later in the same dispatch pass.
type Emitter interface {
	Queue(ev Event)
}

// Handler is implemented by every component attached to the bus.
type Handler interface {
	HandleEvent(ev Event, emit Emitter) error
}

// ComponentID fixes delivery order: every event reaches its subscribers in
// ascending ComponentID order.
type ComponentID uint8

const (
	Input ComponentID = iota
	Movement
	Resource
	Population
	Construction
	Combat
	Time
	PlanetManager
	ShipManager
	FactionManager
	Persistence
	Observer
	NumComponents
)

var componentNames = [NumComponents]string{
	"input", "movement", "resource", "population", "construction", "combat",
	"time", "planet_manager", "ship_manager", "faction_manager", "persistence",
	"observer",
}

func (c ComponentID) String() string {
	if c >= NumComponents {
		return fmt.Sprintf("component(%d)", c)
	}
	return componentNames[c]
}
