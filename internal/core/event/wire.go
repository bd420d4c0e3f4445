package event

import (
	"encoding/json"
	"fmt"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/world"
)

// Wire form: {"type": "<kind>", ...fields}. Commands come in this way from
// the gateway and from AI scripts; state changes go out as
// {"type": "<kind>", "data": {...}}.

func decodeAs[T Event](raw []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var commandDecoders = map[Kind]func([]byte) (Event, error){
	KindSelectPlanet:       decodeAs[SelectPlanet],
	KindSelectShip:         decodeAs[SelectShip],
	KindBuildStructure:     decodeAs[BuildStructure],
	KindConstructShip:      decodeAs[ConstructShip],
	KindCancelConstruction: decodeAs[CancelConstruction],
	KindMoveShip:           decodeAs[MoveShip],
	KindTransferResources:  decodeAs[TransferResources],
	KindLoadCargo:          decodeAs[LoadCargo],
	KindUnloadCargo:        decodeAs[UnloadCargo],
	KindAllocateWorkers:    decodeAs[AllocateWorkers],
	KindAttackTarget:       decodeAs[AttackTarget],
	KindColonizePlanet:     decodeAs[ColonizePlanet],
	KindSetSpeed:           decodeAs[SetSpeed],
	KindPause:              decodeAs[Pause],
	KindSave:               decodeAs[Save],
	KindLoad:               decodeAs[Load],
	KindNewGame:            decodeAs[NewGame],
	KindExit:               decodeAs[Exit],
}

// DecodeCommand parses one wire command.
func DecodeCommand(raw []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	k, ok := ParseKind(head.Type)
	if !ok || k.Class() != ClassCommand {
		return nil, errs.Invalid("decode command", "unknown command %q", head.Type)
	}
	ev, err := commandDecoders[k](raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	return ev, nil
}

// WithFaction stamps f as the issuer of a faction-scoped command. Other
// events pass through unchanged.
func WithFaction(ev Event, f world.FactionID) Event {
	switch c := ev.(type) {
	case BuildStructure:
		c.Faction = f
		return c
	case ConstructShip:
		c.Faction = f
		return c
	case CancelConstruction:
		c.Faction = f
		return c
	case MoveShip:
		c.Faction = f
		return c
	case TransferResources:
		c.Faction = f
		return c
	case LoadCargo:
		c.Faction = f
		return c
	case UnloadCargo:
		c.Faction = f
		return c
	case AllocateWorkers:
		c.Faction = f
		return c
	case AttackTarget:
		c.Faction = f
		return c
	case ColonizePlanet:
		c.Faction = f
		return c
	}
	return ev
}

// Envelope is the outbound wire form.
type Envelope struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

// Encode renders an event for the wire.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(Envelope{Type: ev.Kind().String(), Data: ev})
}
