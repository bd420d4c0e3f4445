package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotPolicy(t *testing.T) {
	sp := SlotPolicy{Base: 10, PopulationPer: 10000, Max: 12}
	assert.Equal(t, 10, sp.Slots(0))
	assert.Equal(t, 11, sp.Slots(15000))
	assert.Equal(t, 12, sp.Slots(1_000_000))
}

func TestPlanetInvariantsCollectEveryViolation(t *testing.T) {
	p := Planet{
		Population: 100,
		Workers:    Idle(90),
		Resources:  Bundle(Minerals, 20, Food, -1),
		Capacity:   Bundle(Minerals, 10, Food, 10),
	}
	err := p.CheckInvariants(SlotPolicy{Base: 10})
	if assert.Error(t, err) {
		msg := err.Error()
		assert.Contains(t, msg, "worker allocation 90 != population 100")
		assert.Contains(t, msg, "minerals balance 20 > capacity 10")
		assert.Contains(t, msg, "food balance -1 < 0")
	}

	ok := Planet{Population: 5, Workers: Idle(5), Capacity: Bundle(Food, 1)}
	assert.NoError(t, ok.CheckInvariants(SlotPolicy{Base: 1}))
}

func TestPlanetCloneDoesNotAlias(t *testing.T) {
	p := Planet{Buildings: []Building{{Type: "mine", Tier: 1, Operational: true}}}
	c := p.Clone()
	c.Buildings[0].Tier = 3
	assert.Equal(t, 1, p.Buildings[0].Tier)
}

func TestShipInvariants(t *testing.T) {
	s := Ship{Owner: 1, Fuel: 5, FuelCapacity: 10, CargoCapacity: 10, Cargo: Bundle(Minerals, 10)}
	assert.NoError(t, s.CheckInvariants())

	s.Cargo[Food] = 1
	s.Fuel = -1
	err := s.CheckInvariants()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "fuel -1 < 0")
		assert.Contains(t, err.Error(), "cargo 11 > capacity 10")
	}
}
