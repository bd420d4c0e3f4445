package sim

import "github.com/stellardominion/server/internal/core/event"

// commandRoute is where every command goes: admission by the input
// system, then the system that executes it.
func commandRoute(executor ...event.ComponentID) []event.ComponentID {
	return append([]event.ComponentID{event.Input}, executor...)
}

// Routes is the complete routing table. Kinds without an entry are kept in
// the bus history only; state changes go to the observer.
var Routes = event.Routes{
	event.KindSelectPlanet:       commandRoute(),
	event.KindSelectShip:         commandRoute(),
	event.KindBuildStructure:     commandRoute(event.Construction),
	event.KindConstructShip:      commandRoute(event.Construction),
	event.KindCancelConstruction: commandRoute(event.Construction),
	event.KindMoveShip:           commandRoute(event.Movement),
	event.KindTransferResources:  commandRoute(event.Resource),
	event.KindLoadCargo:          commandRoute(event.Resource),
	event.KindUnloadCargo:        commandRoute(event.Resource),
	event.KindAllocateWorkers:    commandRoute(event.Population),
	event.KindAttackTarget:       commandRoute(event.Combat),
	event.KindColonizePlanet:     commandRoute(event.Combat),
	event.KindSetSpeed:           commandRoute(event.Time),
	event.KindPause:              commandRoute(event.Time),
	event.KindSave:               commandRoute(event.Persistence),
	event.KindLoad:               commandRoute(event.Persistence),
	event.KindNewGame:            commandRoute(event.Persistence),
	event.KindExit:               commandRoute(event.Time),

	event.KindTickCompleted: {
		event.Input, event.Movement, event.Resource, event.Population,
		event.Construction, event.Combat, event.Persistence,
	},
	event.KindConstructionCompleted: {event.PlanetManager},
	event.KindPopulationGrowth:      {event.PlanetManager},
	event.KindShipCompleted:         {event.ShipManager},
	event.KindShipArrived:           {event.ShipManager},
	event.KindFuelExhausted:         {event.ShipManager},
	event.KindCombatResolved:        {event.ShipManager, event.FactionManager, event.Observer},
	event.KindPlanetConquered:       {event.PlanetManager, event.FactionManager, event.Observer},
	event.KindPlanetColonized:       {event.PlanetManager, event.ShipManager, event.FactionManager},
	event.KindResourceShortage:      {event.Observer},
	event.KindGameLoaded:            {event.Observer},

	event.KindPlanetUpdated:  {event.Observer},
	event.KindShipUpdated:    {event.Observer},
	event.KindShipDestroyed:  {event.Observer},
	event.KindFactionUpdated: {event.Observer},
	event.KindSelected:       {event.Observer},
	event.KindCommandFailed:  {event.Observer},
	event.KindSpeedChanged:   {event.Observer},
	event.KindPauseChanged:   {event.Observer},
	event.KindGameSaved:      {event.Observer},
	event.KindGameReset:      {event.Input, event.Observer},
}

// Mutation names one designated caller of a manager mutation for one
// triggering event kind.
type Mutation struct {
	Trigger event.Kind
	Caller  event.ComponentID
	Manager event.ComponentID
	Method  string
}

// Mutations documents who calls which manager mutation, per event kind.
// A (Trigger, Manager, Method) triple has exactly one Caller.
var Mutations = []Mutation{
	{event.KindTickCompleted, event.Resource, event.PlanetManager, "AddResources"},
	{event.KindTickCompleted, event.Resource, event.PlanetManager, "RemoveResources"},
	{event.KindTickCompleted, event.Resource, event.ShipManager, "Refuel"},
	{event.KindTransferResources, event.Resource, event.PlanetManager, "Transfer"},
	{event.KindLoadCargo, event.Resource, event.PlanetManager, "RemoveResources"},
	{event.KindLoadCargo, event.Resource, event.ShipManager, "LoadCargo"},
	{event.KindUnloadCargo, event.Resource, event.ShipManager, "UnloadCargo"},
	{event.KindUnloadCargo, event.Resource, event.PlanetManager, "AddResources"},
	{event.KindTickCompleted, event.Population, event.PlanetManager, "ConsumeFood"},
	{event.KindAllocateWorkers, event.Population, event.PlanetManager, "SetWorkerAllocation"},
	{event.KindBuildStructure, event.Construction, event.PlanetManager, "RemoveResources"},
	{event.KindConstructShip, event.Construction, event.PlanetManager, "RemoveResources"},
	{event.KindMoveShip, event.Movement, event.ShipManager, "SetTrajectory"},
	{event.KindTickCompleted, event.Movement, event.ShipManager, "ConsumeFuel"},
	{event.KindTickCompleted, event.Movement, event.ShipManager, "UpdatePosition"},

	{event.KindConstructionCompleted, event.PlanetManager, event.PlanetManager, "AddBuilding"},
	{event.KindPopulationGrowth, event.PlanetManager, event.PlanetManager, "ChangePopulation"},
	{event.KindPlanetConquered, event.PlanetManager, event.PlanetManager, "SetController"},
	{event.KindPlanetColonized, event.PlanetManager, event.PlanetManager, "Colonize"},
	{event.KindShipCompleted, event.ShipManager, event.ShipManager, "Spawn"},
	{event.KindShipArrived, event.ShipManager, event.ShipManager, "Arrive"},
	{event.KindFuelExhausted, event.ShipManager, event.ShipManager, "Halt"},
	{event.KindCombatResolved, event.ShipManager, event.ShipManager, "Destroy"},
	{event.KindPlanetColonized, event.ShipManager, event.ShipManager, "Destroy"},
	{event.KindCombatResolved, event.FactionManager, event.FactionManager, "AddScore"},
	{event.KindPlanetConquered, event.FactionManager, event.FactionManager, "AddScore"},
	{event.KindPlanetColonized, event.FactionManager, event.FactionManager, "AddScore"},
}
