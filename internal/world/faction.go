package world

type FactionID uint64

// Faction is owned exclusively by the faction manager. AITag is opaque to
// the simulation; the scripting collaborator interprets it.
type Faction struct {
	ID     FactionID `json:"id"`
	Name   string    `json:"name"`
	Player bool      `json:"player"`
	Score  int64     `json:"score"`
	AITag  string    `json:"ai_tag,omitempty"`
}
