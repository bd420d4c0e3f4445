package world

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 2

// Snapshot is the complete serializable simulation state: the tick counter,
// every manager collection in ascending ID order, the ID sequences so a
// reloaded game never re-issues an identifier, and the in-flight
// construction orders, battles and command allowances.
type Snapshot struct {
	Version       int       `json:"version"`
	Tick          uint64    `json:"tick"`
	NextPlanetID  PlanetID  `json:"next_planet_id"`
	NextShipID    ShipID    `json:"next_ship_id"`
	NextFactionID FactionID `json:"next_faction_id"`
	Planets       []Planet  `json:"planets"`
	Ships         []Ship    `json:"ships"`
	Factions      []Faction `json:"factions"`

	NextOrderID  uint64              `json:"next_order_id"`
	NextBattleID uint64              `json:"next_battle_id"`
	Orders       []ConstructionOrder `json:"orders"`
	Battles      []Battle            `json:"battles"`

	Throttle []CommandBucket `json:"throttle,omitempty"`
}

// CommandBucket is one faction's command allowance in thousandths of a
// command, as last refilled at Tick.
type CommandBucket struct {
	Faction FactionID `json:"faction"`
	Milli   int64     `json:"milli"`
	Tick    uint64    `json:"tick"`
}
