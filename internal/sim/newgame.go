package sim

import (
	"fmt"
	"math"

	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/manager"
	"github.com/stellardominion/server/internal/orbit"
	"github.com/stellardominion/server/internal/world"
)

// Setup describes a fresh game.
type Setup struct {
	Seed        uint64
	PlanetCount int
	AIOpponents int
	PlayerName  string
}

// SetupFromConfig reads the [game] section.
func SetupFromConfig(g config.GameConfig) Setup {
	return Setup{
		Seed:        g.Seed,
		PlanetCount: g.PlanetCount,
		AIOpponents: g.AIOpponents,
		PlayerName:  g.PlayerName,
	}
}

var aiTags = []string{"aggressive", "economic", "balanced"}

var aiNames = []string{
	"Vega Combine", "Orion Syndicate", "Lyra Accord",
	"Draco Dominion", "Cygnus League", "Hydra Collective",
}

var planetNames = []string{
	"Aurelia", "Brisa", "Caldera", "Dunmore", "Elysia", "Fenrir", "Galen",
	"Helix", "Icarus", "Juno", "Kestrel", "Lumen", "Meridian", "Nadir",
}

// goldenConj is 1/phi; multiples of it modulo one spread evenly.
const goldenConj = 0.6180339887498949

func frac(x float64) float64 { return x - math.Floor(x) }

// orbitFor derives planet i's orbit from the seed. The same seed always
// yields the same system.
func orbitFor(seed uint64, i int) world.OrbitalElements {
	jitter := frac(float64(seed%1000+uint64(i)+1) * goldenConj)
	a := 1 + 0.6*float64(i) + 0.3*jitter
	return world.OrbitalElements{
		SemiMajorAxis: a,
		Period:        math.Round(600 * math.Pow(a, 1.5)),
		Phase:         2 * math.Pi * frac(float64(seed+uint64(i))*goldenConj),
	}
}

func planetName(i int) string {
	name := planetNames[i%len(planetNames)]
	if n := i / len(planetNames); n > 0 {
		name = fmt.Sprintf("%s %d", name, n+1)
	}
	return name
}

func factionName(i int) string {
	name := aiNames[i%len(aiNames)]
	if n := i / len(aiNames); n > 0 {
		name = fmt.Sprintf("%s %d", name, n+1)
	}
	return name
}

// staffed assigns workers to the starting buildings, keeping the reserve
// unassigned.
func staffed(rules *data.Rules, pop int64, buildings []world.Building) world.WorkerAllocation {
	w := world.Idle(pop)
	free := pop - rules.Population.MinUnassigned.Of(pop)
	for _, b := range buildings {
		def, ok := rules.Building(b.Type)
		if !ok || def.Labor == world.Unassigned || def.JobsPerTier == 0 {
			continue
		}
		n := min(def.JobsPerTier*int64(b.Tier), free)
		w[def.Labor] += n
		w[world.Unassigned] -= n
		free -= n
	}
	return w
}

// populate creates the factions, planets and starting fleets of a new
// game through the managers.
func populate(setup Setup, rules *data.Rules, planets *manager.Planets, ships *manager.Ships, factions *manager.Factions) error {
	if setup.PlanetCount < setup.AIOpponents+1 {
		return fmt.Errorf("new game: %d planets cannot seat %d factions", setup.PlanetCount, setup.AIOpponents+1)
	}
	player := setup.PlayerName
	if player == "" {
		player = "Player"
	}
	owners := make([]world.FactionID, 0, setup.AIOpponents+1)
	id, err := factions.Create(player, true, "")
	if err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	owners = append(owners, id)
	for i := 0; i < setup.AIOpponents; i++ {
		id, err := factions.Create(factionName(i), false, aiTags[i%len(aiTags)])
		if err != nil {
			return fmt.Errorf("new game: %w", err)
		}
		owners = append(owners, id)
	}

	homes := make(map[int]world.FactionID, len(owners))
	for k, f := range owners {
		homes[k*setup.PlanetCount/len(owners)] = f
	}

	start := rules.Start
	for i := 0; i < setup.PlanetCount; i++ {
		p := world.Planet{Name: planetName(i), Orbit: orbitFor(setup.Seed, i)}
		owner, home := homes[i]
		if home {
			p.Controller = owner
			p.Population = start.Population
			p.Resources = start.Resources
			for _, t := range start.Buildings {
				p.Buildings = append(p.Buildings, world.Building{Type: t, Tier: 1, Operational: true})
			}
			p.Workers = staffed(rules, p.Population, p.Buildings)
		}
		pid, err := planets.Create(p)
		if err != nil {
			return fmt.Errorf("new game: planet %s: %w", p.Name, err)
		}
		if !home {
			continue
		}
		pos := orbit.Position(p.Orbit, 0)
		for _, class := range start.Fleet {
			if _, err := ships.Spawn(class, owner, pid, pos); err != nil {
				return fmt.Errorf("new game: fleet of %d: %w", owner, err)
			}
		}
	}
	return nil
}
