package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/stellardominion/server/internal/world"
	"gopkg.in/yaml.v3"
)

// Permille expresses a fraction in thousandths so every rule stays integral
// and replays bit-identically.
type Permille int64

// Of returns floor(n * p / 1000).
func (p Permille) Of(n int64) int64 { return n * int64(p) / 1000 }

// Ceil returns ceil(n * p / 1000) for non-negative n.
func (p Permille) Ceil(n int64) int64 { return (n*int64(p) + 999) / 1000 }

// BuildingDef holds static data for one building type.
type BuildingDef struct {
	Type        world.BuildingType   `yaml:"type"`
	Labor       world.Labor          `yaml:"labor"`
	JobsPerTier int64                `yaml:"jobs_per_tier"`
	Output      world.ResourceBundle `yaml:"output"` // per worker per tick; negative entries are upkeep
	Cost        world.ResourceBundle `yaml:"cost"`
	BuildTicks  uint64               `yaml:"build_ticks"`
	Storage     world.ResourceBundle `yaml:"storage"` // capacity added when completed
	Defense     int64                `yaml:"defense"` // planetary defense strength per tier
}

// ShipClassDef holds base stats for one ship class.
type ShipClassDef struct {
	Class         world.ShipClass      `yaml:"class"`
	Speed         float64              `yaml:"speed"` // AU per tick
	CargoCapacity int64                `yaml:"cargo_capacity"`
	FuelCapacity  int64                `yaml:"fuel_capacity"`
	Strength      int64                `yaml:"strength"`
	Cost          world.ResourceBundle `yaml:"cost"`
	BuildTicks    uint64               `yaml:"build_ticks"`
	Colonists     int64                `yaml:"colonists"`
	Requires      world.BuildingType   `yaml:"requires"` // building needed at the shipyard planet
}

type CombatRules struct {
	WinThreshold   Permille `yaml:"win_threshold"`   // attacker needs this multiple of defender strength
	DefenderBonus  Permille `yaml:"defender_bonus"`  // applied when defending a planet
	WinnerLosses   Permille `yaml:"winner_losses"`   // fraction of the winning fleet lost
	LoserLosses    Permille `yaml:"loser_losses"`    // fraction of the losing fleet lost
	PlanetDefense  int64    `yaml:"planet_defense"`  // base strength of any controlled planet
	MilitaryFactor Permille `yaml:"military_factor"` // strength per military worker
	ResolveDelay   uint64   `yaml:"resolve_delay"`   // ticks between trigger and resolution
}

type PopulationRules struct {
	FoodPerCapita   Permille `yaml:"food_per_capita"`  // food per person per tick
	GrowthThreshold Permille `yaml:"growth_threshold"` // surplus ratio needed before growth
	GrowthRate      Permille `yaml:"growth_rate"`
	StarvationRate  Permille `yaml:"starvation_rate"`
	MinUnassigned   Permille `yaml:"min_unassigned"`
}

type MovementRules struct {
	ArrivalTolerance float64 `yaml:"arrival_tolerance"`
	DockingRange     float64 `yaml:"docking_range"`
	FuelPerAU        float64 `yaml:"fuel_per_au"`
	MinFuelCost      int64   `yaml:"min_fuel_cost"`
}

type PlanetRules struct {
	Capacity world.ResourceBundle `yaml:"capacity"`
	Slots    world.SlotPolicy     `yaml:"slots"`
}

type ScoreRules struct {
	Conquest      int64 `yaml:"conquest"`
	Colony        int64 `yaml:"colony"`
	ShipDestroyed int64 `yaml:"ship_destroyed"`
}

type StartRules struct {
	Population int64                `yaml:"population"`
	Resources  world.ResourceBundle `yaml:"resources"`
	Buildings  []world.BuildingType `yaml:"buildings"`
	Fleet      []world.ShipClass    `yaml:"fleet"`
}

// Rules is the complete tuning table. Systems consult it; nobody mutates it
// after load.
type Rules struct {
	Buildings  []BuildingDef   `yaml:"buildings"`
	Ships      []ShipClassDef  `yaml:"ships"`
	Combat     CombatRules     `yaml:"combat"`
	Population PopulationRules `yaml:"population"`
	Movement   MovementRules   `yaml:"movement"`
	Planets    PlanetRules     `yaml:"planets"`
	Score      ScoreRules      `yaml:"score"`
	Start      StartRules      `yaml:"start"`

	buildings map[world.BuildingType]*BuildingDef
	ships     map[world.ShipClass]*ShipClassDef
}

// LoadRules overlays a YAML file on DefaultRules.
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules overlays YAML bytes on DefaultRules.
func ParseRules(raw []byte) (*Rules, error) {
	r := DefaultRules()
	if err := yaml.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.index(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rules) index() error {
	r.buildings = make(map[world.BuildingType]*BuildingDef, len(r.Buildings))
	for i := range r.Buildings {
		b := &r.Buildings[i]
		if b.Type == "" {
			return errors.New("rules: building without type")
		}
		if _, dup := r.buildings[b.Type]; dup {
			return fmt.Errorf("rules: duplicate building %q", b.Type)
		}
		if !b.Cost.NonNegative() {
			return fmt.Errorf("rules: building %q has negative cost", b.Type)
		}
		r.buildings[b.Type] = b
	}
	r.ships = make(map[world.ShipClass]*ShipClassDef, len(r.Ships))
	for i := range r.Ships {
		s := &r.Ships[i]
		if s.Class == "" {
			return errors.New("rules: ship class without name")
		}
		if _, dup := r.ships[s.Class]; dup {
			return fmt.Errorf("rules: duplicate ship class %q", s.Class)
		}
		if s.Speed <= 0 {
			return fmt.Errorf("rules: ship class %q needs positive speed", s.Class)
		}
		if !s.Cost.NonNegative() {
			return fmt.Errorf("rules: ship class %q has negative cost", s.Class)
		}
		r.ships[s.Class] = s
	}
	if r.Combat.WinThreshold <= 0 {
		return errors.New("rules: combat.win_threshold must be positive")
	}
	if r.Combat.WinnerLosses < 0 || r.Combat.WinnerLosses > 1000 || r.Combat.LoserLosses < 0 || r.Combat.LoserLosses > 1000 {
		return errors.New("rules: combat losses must be within [0, 1000]")
	}
	if r.Population.MinUnassigned < 0 || r.Population.MinUnassigned > 1000 {
		return errors.New("rules: population.min_unassigned must be within [0, 1000]")
	}
	return nil
}

// Building looks up a building definition.
func (r *Rules) Building(t world.BuildingType) (*BuildingDef, bool) {
	b, ok := r.buildings[t]
	return b, ok
}

// ShipClass looks up a ship class definition.
func (r *Rules) ShipClass(c world.ShipClass) (*ShipClassDef, bool) {
	s, ok := r.ships[c]
	return s, ok
}

// Strength returns the base combat strength of class c, zero if unknown.
func (r *Rules) Strength(c world.ShipClass) int64 {
	if s, ok := r.ships[c]; ok {
		return s.Strength
	}
	return 0
}

// Count returns the number of building types and ship classes.
func (r *Rules) Count() int { return len(r.buildings) + len(r.ships) }

// MustDefault returns the indexed default rules.
func MustDefault() *Rules {
	r := DefaultRules()
	if err := r.index(); err != nil {
		panic(err)
	}
	return r
}

// DefaultRules is the built-in tuning table. Returned unindexed; use
// MustDefault or ParseRules to get a usable value.
func DefaultRules() *Rules {
	B := world.Bundle
	return &Rules{
		Buildings: []BuildingDef{
			{Type: "mine", Labor: world.Mining, JobsPerTier: 10, Output: B(world.Minerals, 1), Cost: B(world.Minerals, 100, world.Alloys, 20, world.Components, 10), BuildTicks: 10},
			{Type: "farm", Labor: world.Agriculture, JobsPerTier: 10, Output: B(world.Food, 2), Cost: B(world.Minerals, 50, world.Alloys, 10, world.Components, 5), BuildTicks: 8},
			{Type: "power_plant", Labor: world.Industry, JobsPerTier: 5, Output: B(world.Energy, 3), Cost: B(world.Minerals, 80, world.Alloys, 15), BuildTicks: 10},
			{Type: "factory", Labor: world.Industry, JobsPerTier: 10, Output: B(world.Alloys, 1, world.Minerals, -1), Cost: B(world.Minerals, 150, world.Energy, 50), BuildTicks: 15},
			{Type: "research_lab", Labor: world.Science, JobsPerTier: 5, Output: B(world.Research, 1, world.Components, 1, world.Energy, -1), Cost: B(world.Minerals, 120, world.Alloys, 30), BuildTicks: 15},
			{Type: "refinery", Labor: world.Industry, JobsPerTier: 5, Output: B(world.Fuel, 2, world.Energy, -1), Cost: B(world.Minerals, 100, world.Alloys, 20), BuildTicks: 12},
			{Type: "spaceport", Cost: B(world.Minerals, 200, world.Alloys, 50, world.Components, 20), BuildTicks: 20},
			{Type: "defense_platform", Labor: world.Military, Cost: B(world.Minerals, 150, world.Alloys, 60), BuildTicks: 15, Defense: 100},
			{Type: "storage_facility", Cost: B(world.Minerals, 100, world.Alloys, 10), BuildTicks: 10, Storage: B(world.Minerals, 5000, world.Food, 2500, world.Energy, 500, world.Alloys, 500, world.Components, 250, world.Fuel, 1000, world.Research, 1000)},
			{Type: "habitat", Cost: B(world.Minerals, 120, world.Alloys, 20, world.Food, 50), BuildTicks: 12},
		},
		Ships: []ShipClassDef{
			{Class: "scout", Speed: 0.5, CargoCapacity: 0, FuelCapacity: 200, Strength: 10, Cost: B(world.Minerals, 50, world.Alloys, 10), BuildTicks: 10, Requires: "spaceport"},
			{Class: "transport", Speed: 0.25, CargoCapacity: 500, FuelCapacity: 300, Strength: 5, Cost: B(world.Minerals, 80, world.Alloys, 20), BuildTicks: 15, Requires: "spaceport"},
			{Class: "warship", Speed: 0.3, CargoCapacity: 0, FuelCapacity: 250, Strength: 50, Cost: B(world.Minerals, 150, world.Alloys, 60, world.Components, 20), BuildTicks: 25, Requires: "spaceport"},
			{Class: "colony", Speed: 0.2, CargoCapacity: 100, FuelCapacity: 300, Strength: 1, Cost: B(world.Minerals, 200, world.Alloys, 50, world.Food, 100), BuildTicks: 30, Colonists: 1000, Requires: "spaceport"},
		},
		Combat: CombatRules{
			WinThreshold:   1500,
			DefenderBonus:  2000,
			WinnerLosses:   300,
			LoserLosses:    1000,
			PlanetDefense:  20,
			MilitaryFactor: 10,
			ResolveDelay:   1,
		},
		Population: PopulationRules{
			FoodPerCapita:   10,
			GrowthThreshold: 200,
			GrowthRate:      20,
			StarvationRate:  10,
			MinUnassigned:   100,
		},
		Movement: MovementRules{
			ArrivalTolerance: 0.01,
			DockingRange:     0.5,
			FuelPerAU:        10,
			MinFuelCost:      1,
		},
		Planets: PlanetRules{
			Capacity: B(world.Minerals, 10000, world.Food, 5000, world.Energy, 1000, world.Alloys, 1000, world.Components, 500, world.Fuel, 2000, world.Research, 5000),
			Slots:    world.SlotPolicy{Base: 10, PopulationPer: 10000},
		},
		Score: ScoreRules{Conquest: 100, Colony: 50, ShipDestroyed: 5},
		Start: StartRules{
			Population: 1000,
			Resources:  B(world.Minerals, 1000, world.Food, 1500, world.Energy, 500, world.Alloys, 300, world.Components, 100, world.Fuel, 500),
			Buildings:  []world.BuildingType{"mine", "farm", "farm", "power_plant", "spaceport"},
			Fleet:      []world.ShipClass{"scout", "transport", "warship"},
		},
	}
}
