package world

import "math"

// Vector2 is a position in the plane, in AU.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{v.X - o.X, v.Y - o.Y} }

func (v Vector2) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vector2) DistanceTo(o Vector2) float64 { return v.Sub(o).Len() }

func (v Vector2) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// OrbitalElements describe a circular orbit around the origin.
type OrbitalElements struct {
	SemiMajorAxis float64 `json:"semi_major_axis"` // AU
	Period        float64 `json:"period"`          // ticks
	Phase         float64 `json:"phase"`           // radians
}

// Trajectory is a straight-line transfer computed by the orbital collaborator.
type Trajectory struct {
	Origin        Vector2  `json:"origin"`
	Destination   Vector2  `json:"destination"`
	TargetPlanet  PlanetID `json:"target_planet,omitempty"`
	DepartureTick uint64   `json:"departure_tick"`
	ArrivalTick   uint64   `json:"arrival_tick"`
	FuelCost      int64    `json:"fuel_cost"`
	FuelBurned    int64    `json:"fuel_burned"`
}

// BurnDue returns the fuel owed for the leg ending at tick. Burns are spread
// so their sum over the whole trajectory equals FuelCost exactly.
func (t Trajectory) BurnDue(tick uint64) int64 {
	dur := t.ArrivalTick - t.DepartureTick
	if dur == 0 || tick >= t.ArrivalTick {
		return t.FuelCost - t.FuelBurned
	}
	if tick <= t.DepartureTick {
		return 0
	}
	elapsed := tick - t.DepartureTick
	due := t.FuelCost * int64(elapsed) / int64(dur)
	return due - t.FuelBurned
}
