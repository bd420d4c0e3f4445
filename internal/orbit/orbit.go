// Package orbit is the pure orbital and trajectory math used by the
// movement system. Nothing here holds state or emits events.
package orbit

import (
	"math"

	"github.com/stellardominion/server/internal/world"
)

// Params tune trajectory planning.
type Params struct {
	FuelPerAU   float64
	MinFuelCost int64
}

// Position returns where a body on el sits at tick.
func Position(el world.OrbitalElements, tick uint64) world.Vector2 {
	angle := el.Phase
	if el.Period > 0 {
		angle += 2 * math.Pi * math.Mod(float64(tick), el.Period) / el.Period
	}
	return world.Vector2{
		X: el.SemiMajorAxis * math.Cos(angle),
		Y: el.SemiMajorAxis * math.Sin(angle),
	}
}

// Transfer plans a straight-line trip from from to to departing at tick.
// The trip takes at least one tick.
func Transfer(from, to world.Vector2, speed float64, tick uint64, p Params) world.Trajectory {
	dist := from.DistanceTo(to)
	return world.Trajectory{
		Origin:        from,
		Destination:   to,
		DepartureTick: tick,
		ArrivalTick:   tick + travelTicks(dist, speed),
		FuelCost:      fuelCost(dist, p),
	}
}

// Intercept plans a trip that meets a body on target. The meeting point is
// refined a fixed number of times so the result is reproducible.
func Intercept(from world.Vector2, target world.OrbitalElements, speed float64, tick uint64, p Params) world.Trajectory {
	arrive := tick
	dest := Position(target, tick)
	for i := 0; i < 8; i++ {
		next := tick + travelTicks(from.DistanceTo(dest), speed)
		dest = Position(target, next)
		if next == arrive {
			break
		}
		arrive = next
	}
	return Transfer(from, dest, speed, tick, p)
}

// Interpolate returns the position along t at tick.
func Interpolate(t world.Trajectory, tick uint64) world.Vector2 {
	if tick <= t.DepartureTick {
		return t.Origin
	}
	if tick >= t.ArrivalTick {
		return t.Destination
	}
	f := float64(tick-t.DepartureTick) / float64(t.ArrivalTick-t.DepartureTick)
	return world.Vector2{
		X: t.Origin.X + (t.Destination.X-t.Origin.X)*f,
		Y: t.Origin.Y + (t.Destination.Y-t.Origin.Y)*f,
	}
}

func travelTicks(dist, speed float64) uint64 {
	if speed <= 0 {
		return math.MaxUint32
	}
	n := uint64(math.Ceil(dist / speed))
	if n == 0 {
		n = 1
	}
	return n
}

func fuelCost(dist float64, p Params) int64 {
	c := int64(math.Ceil(dist * p.FuelPerAU))
	if c < p.MinFuelCost {
		c = p.MinFuelCost
	}
	return c
}
