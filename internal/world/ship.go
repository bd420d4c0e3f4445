package world

import (
	"fmt"

	"go.uber.org/multierr"
)

type ShipID uint64

// ShipClass names a ship class from the rules table.
type ShipClass string

// Ship is owned exclusively by the ship manager.
type Ship struct {
	ID            ShipID         `json:"id"`
	Class         ShipClass      `json:"class"`
	Position      Vector2        `json:"position"`
	Docked        PlanetID       `json:"docked,omitempty"`
	Trajectory    *Trajectory    `json:"trajectory,omitempty"`
	Fuel          int64          `json:"fuel"`
	FuelCapacity  int64          `json:"fuel_capacity"`
	Cargo         ResourceBundle `json:"cargo"`
	CargoCapacity int64          `json:"cargo_capacity"`
	Owner         FactionID      `json:"owner"`
}

func (s *Ship) Clone() Ship {
	c := *s
	if s.Trajectory != nil {
		t := *s.Trajectory
		c.Trajectory = &t
	}
	return c
}

// Moving reports whether the ship has an active trajectory.
func (s *Ship) Moving() bool { return s.Trajectory != nil }

// CheckInvariants returns every broken ship invariant, joined.
func (s *Ship) CheckInvariants() error {
	var err error
	if s.Fuel < 0 {
		err = multierr.Append(err, fmt.Errorf("fuel %d < 0", s.Fuel))
	}
	if s.FuelCapacity > 0 && s.Fuel > s.FuelCapacity {
		err = multierr.Append(err, fmt.Errorf("fuel %d > capacity %d", s.Fuel, s.FuelCapacity))
	}
	if !s.Cargo.NonNegative() {
		err = multierr.Append(err, fmt.Errorf("negative cargo %s", s.Cargo))
	}
	if t := s.Cargo.Total(); t > s.CargoCapacity {
		err = multierr.Append(err, fmt.Errorf("cargo %d > capacity %d", t, s.CargoCapacity))
	}
	if s.Owner == 0 {
		err = multierr.Append(err, fmt.Errorf("ship has no owner"))
	}
	return err
}
