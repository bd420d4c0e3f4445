package manager

import (
	"strings"

	"github.com/stellardominion/server/internal/core/entity"
	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/data"
	"github.com/stellardominion/server/internal/world"
	"golang.org/x/text/unicode/norm"
)

// Factions owns every faction.
type Factions struct {
	store  *entity.Store[world.Faction]
	seq    *entity.Sequence
	score  data.ScoreRules
	notify event.Emitter
}

func NewFactions(rules *data.Rules, notify event.Emitter) *Factions {
	return &Factions{
		store:  entity.NewStore[world.Faction](),
		seq:    entity.NewSequence(),
		score:  rules.Score,
		notify: notify,
	}
}

func (m *Factions) Component() event.ComponentID { return event.FactionManager }

func (m *Factions) Get(id world.FactionID) (world.Faction, error) {
	f, ok := m.store.Get(entity.ID(id))
	if !ok {
		return world.Faction{}, errs.NotFound("faction.get", "faction", uint64(id))
	}
	return *f, nil
}

func (m *Factions) Has(id world.FactionID) bool { return m.store.Has(entity.ID(id)) }

func (m *Factions) Len() int { return m.store.Len() }

func (m *Factions) All() []world.Faction {
	out := make([]world.Faction, 0, m.store.Len())
	m.store.Each(func(_ entity.ID, f *world.Faction) {
		out = append(out, *f)
	})
	return out
}

// NormalizeName folds a display name to NFC and trims surrounding space, so
// visually identical names compare equal.
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Create registers a faction. Names are normalised and must be unique.
func (m *Factions) Create(name string, player bool, aiTag string) (world.FactionID, error) {
	const op = "faction.create"
	name = NormalizeName(name)
	if name == "" {
		return 0, errs.Invalid(op, "empty faction name")
	}
	var clash bool
	m.store.Each(func(_ entity.ID, f *world.Faction) {
		if strings.EqualFold(f.Name, name) {
			clash = true
		}
	})
	if clash {
		return 0, errs.Invalid(op, "faction name %q already taken", name)
	}
	f := world.Faction{ID: world.FactionID(m.seq.Next()), Name: name, Player: player, AITag: aiTag}
	m.store.Set(entity.ID(f.ID), &f)
	m.changed(&f)
	return f.ID, nil
}

// AddScore credits delta points. Scores never drop below zero.
func (m *Factions) AddScore(id world.FactionID, delta int64) error {
	const op = "faction.add_score"
	f, ok := m.store.Get(entity.ID(id))
	if !ok {
		return errs.NotFound(op, "faction", uint64(id))
	}
	if f.Score+delta < 0 {
		return errs.InvalidEntity(op, "faction", uint64(id), "score %d%+d below zero", f.Score, delta)
	}
	f.Score += delta
	m.changed(f)
	return nil
}

func (m *Factions) changed(f *world.Faction) {
	if m.notify != nil {
		m.notify.Queue(event.FactionUpdated{Faction: *f})
	}
}

// HandleEvent applies score changes.
func (m *Factions) HandleEvent(ev event.Event, _ event.Emitter) error {
	switch e := ev.(type) {
	case event.CombatResolved:
		if e.Winner == 0 {
			return nil
		}
		lost := e.DefenderLosses
		if e.Winner == e.Defender {
			lost = e.AttackerLosses
		}
		if lost == 0 || !m.Has(e.Winner) {
			return nil
		}
		return m.AddScore(e.Winner, int64(lost)*m.score.ShipDestroyed)
	case event.PlanetConquered:
		return m.AddScore(e.To, m.score.Conquest)
	case event.PlanetColonized:
		return m.AddScore(e.Faction, m.score.Colony)
	}
	return nil
}

// Snapshot returns every faction plus the next identifier.
func (m *Factions) Snapshot() ([]world.Faction, world.FactionID) {
	return m.All(), world.FactionID(m.seq.Peek())
}

// Restore replaces the collection; on error the manager is left untouched.
func (m *Factions) Restore(factions []world.Faction, next world.FactionID) error {
	const op = "faction.restore"
	fresh := entity.NewStore[world.Faction]()
	for i := range factions {
		f := factions[i]
		if f.ID == 0 || fresh.Has(entity.ID(f.ID)) {
			return errs.InvalidEntity(op, "faction", uint64(f.ID), "duplicate or zero id")
		}
		if f.Score < 0 {
			return errs.InvalidEntity(op, "faction", uint64(f.ID), "negative score")
		}
		fresh.Set(entity.ID(f.ID), &f)
	}
	m.store = fresh
	m.seq.Restore(entity.ID(next), fresh.MaxID())
	return nil
}
