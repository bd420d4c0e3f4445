package system

import (
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
)

// PopulationSystem feeds every populated planet, turns food surplus into
// growth and shortage into starvation, and executes worker allocation
// commands.
type PopulationSystem struct {
	deps *Deps
}

func NewPopulationSystem(deps *Deps) *PopulationSystem {
	return &PopulationSystem{deps: deps}
}

func (s *PopulationSystem) Component() event.ComponentID { return event.Population }

func (s *PopulationSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		for _, p := range s.deps.Planets.All() {
			if err := s.feed(p, emit); err != nil {
				return err
			}
		}
	case event.AllocateWorkers:
		if _, err := s.deps.ownedPlanet("population.allocate", e.Faction, e.Planet); err != nil {
			return err
		}
		if err := s.deps.Planets.SetWorkerAllocation(e.Planet, e.Workers); err != nil {
			return err
		}
		emit.Queue(event.WorkersAllocated{Planet: e.Planet, Workers: e.Workers})
	}
	return nil
}

// Growth computes the population change for a planet holding food before
// it eats. Positive growth needs a surplus above the threshold ratio;
// a deficit starves at least one person, never below the population its
// buildings need.
func Growth(p world.Planet, deps *Deps) (eaten, shortfall, delta int64) {
	rules := deps.Rules.Population
	if p.Population <= 0 {
		return 0, 0, 0
	}
	need := rules.FoodPerCapita.Ceil(p.Population)
	food := p.Resources[world.Food]
	if food >= need {
		surplus := food - need
		if need > 0 && surplus*1000 > int64(rules.GrowthThreshold)*need {
			delta = rules.GrowthRate.Of(p.Population)
		}
		return need, 0, delta
	}
	loss := max(1, rules.StarvationRate.Of(p.Population))
	floor := deps.Rules.Planets.Slots.MinPopulation(len(p.Buildings))
	loss = min(loss, p.Population-floor)
	if loss < 0 {
		loss = 0
	}
	return food, need - food, -loss
}

func (s *PopulationSystem) feed(p world.Planet, emit event.Emitter) error {
	eaten, shortfall, delta := Growth(p, s.deps)
	if eaten > 0 {
		if err := s.deps.Planets.ConsumeFood(p.ID, eaten); err != nil {
			return err
		}
	}
	if shortfall > 0 {
		emit.Queue(event.ResourceShortage{Planet: p.ID, Shortfall: world.Bundle(world.Food, shortfall)})
	}
	if delta != 0 {
		emit.Queue(event.PopulationGrowth{Planet: p.ID, Delta: delta})
	}
	return nil
}
