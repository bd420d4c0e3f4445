package world

// OrderItem is what a construction order produces: a building or a ship.
type OrderItem struct {
	Building BuildingType `json:"building,omitempty"`
	Ship     ShipClass    `json:"ship,omitempty"`
}

func (i OrderItem) IsShip() bool { return i.Ship != "" }

func (i OrderItem) String() string {
	if i.IsShip() {
		return "ship:" + string(i.Ship)
	}
	return "building:" + string(i.Building)
}

// ConstructionOrder is one entry of a planet's FIFO build queue. Its cost
// was paid when it was accepted.
type ConstructionOrder struct {
	ID        uint64    `json:"id"`
	Planet    PlanetID  `json:"planet"`
	Owner     FactionID `json:"owner"`
	Item      OrderItem `json:"item"`
	Total     uint64    `json:"total"`
	Remaining uint64    `json:"remaining"`
}

// Started reports whether work on the order has begun.
func (o ConstructionOrder) Started() bool { return o.Remaining < o.Total }

// BattleState is the combat resolver's per-battle state.
type BattleState uint8

const (
	BattleTriggered BattleState = iota
	BattleResolving
	BattleConcluded
)

func (s BattleState) String() string {
	switch s {
	case BattleTriggered:
		return "triggered"
	case BattleResolving:
		return "resolving"
	case BattleConcluded:
		return "concluded"
	}
	return "unknown"
}

// Battle is an engagement awaiting resolution at one location.
type Battle struct {
	ID        uint64      `json:"id"`
	State     BattleState `json:"state"`
	Planet    PlanetID    `json:"planet,omitempty"`
	Position  Vector2     `json:"position"`
	Attacker  FactionID   `json:"attacker"`
	Defender  FactionID   `json:"defender"`
	Assault   bool        `json:"assault"` // attacker is trying to take the planet
	Triggered uint64      `json:"triggered"`
	ResolveAt uint64      `json:"resolve_at"`
}
