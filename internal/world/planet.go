package world

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

type PlanetID uint64

// BuildingType names a building kind from the rules table.
type BuildingType string

type Building struct {
	Type        BuildingType `json:"type"`
	Tier        int          `json:"tier"`
	Operational bool         `json:"operational"`
}

// Planet is owned exclusively by the planet manager; everyone else sees copies.
type Planet struct {
	ID         PlanetID         `json:"id"`
	Name       string           `json:"name"`
	Orbit      OrbitalElements  `json:"orbit"`
	Resources  ResourceBundle   `json:"resources"`
	Capacity   ResourceBundle   `json:"capacity"`
	Population int64            `json:"population"`
	Workers    WorkerAllocation `json:"workers"`
	Buildings  []Building       `json:"buildings"`
	Controller FactionID        `json:"controller,omitempty"`
}

// Clone deep-copies the planet.
func (p *Planet) Clone() Planet {
	c := *p
	c.Buildings = append([]Building(nil), p.Buildings...)
	return c
}

// Controlled reports whether any faction controls the planet.
func (p *Planet) Controlled() bool { return p.Controller != 0 }

// CountBuildings counts buildings of type t.
func (p *Planet) CountBuildings(t BuildingType) int {
	n := 0
	for _, b := range p.Buildings {
		if b.Type == t {
			n++
		}
	}
	return n
}

// SlotPolicy derives building slots from population.
type SlotPolicy struct {
	Base          int   `yaml:"base"`
	PopulationPer int64 `yaml:"population_per_slot"`
	Max           int   `yaml:"max"`
}

// Slots returns the number of building slots available at population pop.
func (sp SlotPolicy) Slots(pop int64) int {
	n := sp.Base
	if sp.PopulationPer > 0 {
		n += int(pop / sp.PopulationPer)
	}
	if sp.Max > 0 && n > sp.Max {
		n = sp.Max
	}
	return n
}

// MinPopulation returns the smallest population whose slots fit n
// buildings.
func (sp SlotPolicy) MinPopulation(n int) int64 {
	extra := n - sp.Base
	if extra <= 0 || sp.PopulationPer <= 0 {
		return 0
	}
	return int64(extra) * sp.PopulationPer
}

// CheckInvariants returns every broken planet invariant, joined.
func (p *Planet) CheckInvariants(slots SlotPolicy) error {
	var err error
	if p.Population < 0 {
		err = multierr.Append(err, fmt.Errorf("population %d < 0", p.Population))
	}
	if !p.Workers.NonNegative() {
		err = multierr.Append(err, errors.New("negative worker category"))
	}
	if sum := p.Workers.Sum(); sum != p.Population {
		err = multierr.Append(err, fmt.Errorf("worker allocation %d != population %d", sum, p.Population))
	}
	for k := ResourceKind(0); k < NumResources; k++ {
		if p.Resources[k] < 0 {
			err = multierr.Append(err, fmt.Errorf("%s balance %d < 0", k, p.Resources[k]))
		}
		if p.Resources[k] > p.Capacity[k] {
			err = multierr.Append(err, fmt.Errorf("%s balance %d > capacity %d", k, p.Resources[k], p.Capacity[k]))
		}
	}
	if n, max := len(p.Buildings), slots.Slots(p.Population); n > max {
		err = multierr.Append(err, fmt.Errorf("%d buildings > %d slots", n, max))
	}
	return err
}
