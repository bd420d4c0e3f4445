package event

import "github.com/stellardominion/server/internal/world"

// State changes carry copies, never references into manager storage.

type PlanetUpdated struct {
	Planet world.Planet `json:"planet"`
}

type ShipUpdated struct {
	Ship world.Ship `json:"ship"`
}

type ShipDestroyed struct {
	Ship  world.ShipID    `json:"ship"`
	Owner world.FactionID `json:"owner"`
}

type FactionUpdated struct {
	Faction world.Faction `json:"faction"`
}

type Selected struct {
	Planet world.PlanetID `json:"planet,omitempty"`
	Ship   world.ShipID   `json:"ship,omitempty"`
}

type CommandFailed struct {
	Command Kind            `json:"command"`
	Faction world.FactionID `json:"faction,omitempty"`
	Reason  string          `json:"reason"`
}

type SpeedChanged struct {
	Speed float64 `json:"speed"`
}

type PauseChanged struct {
	Paused bool `json:"paused"`
}

type GameSaved struct {
	Slot string `json:"slot"`
	ID   string `json:"id"`
	Tick uint64 `json:"tick"`
}

type GameReset struct {
	Tick uint64 `json:"tick"`
}

func (PlanetUpdated) Kind() Kind  { return KindPlanetUpdated }
func (ShipUpdated) Kind() Kind    { return KindShipUpdated }
func (ShipDestroyed) Kind() Kind  { return KindShipDestroyed }
func (FactionUpdated) Kind() Kind { return KindFactionUpdated }
func (Selected) Kind() Kind       { return KindSelected }
func (CommandFailed) Kind() Kind  { return KindCommandFailed }
func (SpeedChanged) Kind() Kind   { return KindSpeedChanged }
func (PauseChanged) Kind() Kind   { return KindPauseChanged }
func (GameSaved) Kind() Kind      { return KindGameSaved }
func (GameReset) Kind() Kind      { return KindGameReset }
