package system

import (
	"math"
	"sort"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
)

// CombatSystem runs the battle state machine: Triggered when hostile
// forces share a location (or on an attack order), Resolving on the tick
// it falls due, Concluded once the outcome events are queued. Resolution
// is integer arithmetic over current strengths; there is no randomness.
type CombatSystem struct {
	deps    *Deps
	battles map[uint64]*world.Battle
	nextID  uint64
}

func NewCombatSystem(deps *Deps) *CombatSystem {
	return &CombatSystem{
		deps:    deps,
		battles: make(map[uint64]*world.Battle),
		nextID:  1,
	}
}

func (s *CombatSystem) Component() event.ComponentID { return event.Combat }

func (s *CombatSystem) HandleEvent(ev event.Event, emit event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		settled := s.resolveDue(e.Tick, emit)
		s.detect(e.Tick, settled, emit)
	case event.AttackTarget:
		return s.attack(e, emit)
	case event.ColonizePlanet:
		return s.colonize(e, emit)
	}
	return nil
}

// location groups ships that can fight each other: docked at the same
// planet, or parked in the same grid cell.
type location struct {
	planet world.PlanetID
	qx, qy int64
}

func (s *CombatSystem) locate(sh world.Ship) (location, bool) {
	if sh.Moving() {
		return location{}, false
	}
	if sh.Docked != 0 {
		return location{planet: sh.Docked}, true
	}
	cell := s.deps.Rules.Movement.DockingRange
	if cell <= 0 {
		cell = 1
	}
	return location{
		qx: int64(math.Floor(sh.Position.X / cell)),
		qy: int64(math.Floor(sh.Position.Y / cell)),
	}, true
}

func (s *CombatSystem) battleAt(loc location) *world.Battle {
	for _, b := range s.battles {
		if bl, _ := s.locate(world.Ship{Docked: b.Planet, Position: b.Position}); bl == loc {
			return b
		}
	}
	return nil
}

// Battles returns the open battles in ID order.
func (s *CombatSystem) Battles() ([]world.Battle, uint64) {
	out := make([]world.Battle, 0, len(s.battles))
	for _, b := range s.battles {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, s.nextID
}

// Restore replaces the open battles.
func (s *CombatSystem) Restore(battles []world.Battle, next uint64) error {
	fresh := make(map[uint64]*world.Battle, len(battles))
	for i := range battles {
		b := battles[i]
		if b.ID == 0 || fresh[b.ID] != nil {
			return errs.Invalid("combat.restore", "duplicate or zero battle id %d", b.ID)
		}
		if b.ID >= next {
			next = b.ID + 1
		}
		fresh[b.ID] = &b
	}
	if next == 0 {
		next = 1
	}
	s.battles = fresh
	s.nextID = next
	return nil
}

func (s *CombatSystem) trigger(b world.Battle, tick uint64, emit event.Emitter) {
	b.ID = s.nextID
	s.nextID++
	b.State = world.BattleTriggered
	b.Triggered = tick
	b.ResolveAt = tick + max(s.deps.Rules.Combat.ResolveDelay, 1)
	s.battles[b.ID] = &b
	emit.Queue(event.BattleTriggered{
		Battle:   b.ID,
		Assault:  b.Assault,
		Planet:   b.Planet,
		Position: b.Position,
		Attacker: b.Attacker,
		Defender: b.Defender,
	})
}

// detect opens a battle wherever two factions' ships share a location with
// no battle already running there. The planet's controller defends when
// present; otherwise the lowest faction ID does. The attacker is the
// lowest other faction ID. Locations settled this tick wait a tick so the
// losses are applied first.
func (s *CombatSystem) detect(tick uint64, settled map[location]bool, emit event.Emitter) {
	present := make(map[location]map[world.FactionID]world.Vector2)
	var order []location
	for _, sh := range s.deps.Ships.All() {
		loc, ok := s.locate(sh)
		if !ok {
			continue
		}
		if present[loc] == nil {
			present[loc] = make(map[world.FactionID]world.Vector2)
			order = append(order, loc)
		}
		if _, seen := present[loc][sh.Owner]; !seen {
			present[loc][sh.Owner] = sh.Position
		}
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.planet != b.planet {
			return a.planet < b.planet
		}
		if a.qx != b.qx {
			return a.qx < b.qx
		}
		return a.qy < b.qy
	})

	for _, loc := range order {
		owners := present[loc]
		if len(owners) < 2 || settled[loc] || s.battleAt(loc) != nil {
			continue
		}
		factions := make([]world.FactionID, 0, len(owners))
		for f := range owners {
			factions = append(factions, f)
		}
		sort.Slice(factions, func(i, j int) bool { return factions[i] < factions[j] })

		defender := factions[0]
		if loc.planet != 0 {
			if p, err := s.deps.Planets.Get(loc.planet); err == nil {
				if _, ok := owners[p.Controller]; ok && p.Controlled() {
					defender = p.Controller
				}
			}
		}
		var attacker world.FactionID
		for _, f := range factions {
			if f != defender {
				attacker = f
				break
			}
		}
		s.trigger(world.Battle{
			Planet:   loc.planet,
			Position: owners[defender],
			Attacker: attacker,
			Defender: defender,
		}, tick, emit)
	}
}

func (s *CombatSystem) attack(c event.AttackTarget, emit event.Emitter) error {
	const op = "combat.attack"
	sh, err := s.deps.ownedShip(op, c.Faction, c.Ship)
	if err != nil {
		return err
	}
	if s.deps.Rules.Strength(sh.Class) <= 0 {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "%s cannot fight", sh.Class)
	}
	loc, ok := s.locate(sh)
	if !ok {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "under way")
	}
	if s.battleAt(loc) != nil {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "a battle is already under way here")
	}
	tick := s.deps.Clock.Tick()
	switch {
	case c.TargetPlanet != 0:
		p, err := s.deps.Planets.Get(c.TargetPlanet)
		if err != nil {
			return err
		}
		if sh.Docked != p.ID {
			return errs.InvalidEntity(op, "ship", uint64(sh.ID), "not at planet %d", p.ID)
		}
		if !p.Controlled() || p.Controller == sh.Owner {
			return errs.InvalidEntity(op, "planet", uint64(p.ID), "not a hostile planet")
		}
		s.trigger(world.Battle{Planet: p.ID, Position: sh.Position, Attacker: sh.Owner, Defender: p.Controller, Assault: true}, tick, emit)
	case c.TargetShip != 0:
		target, err := s.deps.Ships.Get(c.TargetShip)
		if err != nil {
			return err
		}
		if target.Owner == sh.Owner {
			return errs.InvalidEntity(op, "ship", uint64(target.ID), "same faction")
		}
		if tl, ok := s.locate(target); !ok || tl != loc {
			return errs.InvalidEntity(op, "ship", uint64(target.ID), "out of range")
		}
		s.trigger(world.Battle{Planet: sh.Docked, Position: sh.Position, Attacker: sh.Owner, Defender: target.Owner}, tick, emit)
	default:
		return errs.Invalid(op, "no target")
	}
	return nil
}

// colonize settles an uncontrolled planet outright; against a hostile
// planet it becomes an assault.
func (s *CombatSystem) colonize(c event.ColonizePlanet, emit event.Emitter) error {
	const op = "combat.colonize"
	sh, err := s.deps.ownedShip(op, c.Faction, c.Ship)
	if err != nil {
		return err
	}
	def, ok := s.deps.Rules.ShipClass(sh.Class)
	if !ok || def.Colonists <= 0 {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "%s carries no colonists", sh.Class)
	}
	p, err := s.deps.Planets.Get(c.Planet)
	if err != nil {
		return err
	}
	if sh.Docked != p.ID || sh.Moving() {
		return errs.InvalidEntity(op, "ship", uint64(sh.ID), "not docked at planet %d", p.ID)
	}
	switch p.Controller {
	case 0:
		emit.Queue(event.PlanetColonized{Planet: p.ID, Ship: sh.ID, Faction: sh.Owner, Colonists: def.Colonists})
	case sh.Owner:
		return errs.InvalidEntity(op, "planet", uint64(p.ID), "already held by faction %d", sh.Owner)
	default:
		if s.battleAt(location{planet: p.ID}) != nil {
			return errs.InvalidEntity(op, "planet", uint64(p.ID), "a battle is already under way here")
		}
		s.trigger(world.Battle{Planet: p.ID, Position: sh.Position, Attacker: sh.Owner, Defender: p.Controller, Assault: true}, s.deps.Clock.Tick(), emit)
	}
	return nil
}

func (s *CombatSystem) resolveDue(tick uint64, emit event.Emitter) map[location]bool {
	settled := make(map[location]bool)
	var due []*world.Battle
	for _, b := range s.battles {
		if b.ResolveAt <= tick {
			due = append(due, b)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	for _, b := range due {
		b.State = world.BattleResolving
		out := s.Resolve(*b)
		emit.Queue(out)
		if b.Assault && b.Planet != 0 && out.Winner == b.Attacker {
			if p, err := s.deps.Planets.Get(b.Planet); err == nil && p.Controller == b.Defender {
				emit.Queue(event.PlanetConquered{Planet: b.Planet, From: b.Defender, To: b.Attacker})
			}
		}
		b.State = world.BattleConcluded
		delete(s.battles, b.ID)
		loc, _ := s.locate(world.Ship{Docked: b.Planet, Position: b.Position})
		settled[loc] = true
	}
	return settled
}

// forces returns each side's ships at the battle location, weakest first
// and then by ID.
func (s *CombatSystem) forces(b world.Battle) (atk, def []world.Ship) {
	loc, _ := s.locate(world.Ship{Docked: b.Planet, Position: b.Position})
	for _, sh := range s.deps.Ships.All() {
		if l, ok := s.locate(sh); !ok || l != loc {
			continue
		}
		switch sh.Owner {
		case b.Attacker:
			atk = append(atk, sh)
		case b.Defender:
			def = append(def, sh)
		}
	}
	weakest := func(list []world.Ship) {
		sort.SliceStable(list, func(i, j int) bool {
			si, sj := s.deps.Rules.Strength(list[i].Class), s.deps.Rules.Strength(list[j].Class)
			if si != sj {
				return si < sj
			}
			return list[i].ID < list[j].ID
		})
	}
	weakest(atk)
	weakest(def)
	return atk, def
}

func (s *CombatSystem) fleetStrength(ships []world.Ship) int64 {
	var n int64
	for _, sh := range ships {
		n += s.deps.Rules.Strength(sh.Class)
	}
	return n
}

// planetDefense is the fixed strength a controlled planet adds to its
// defender: base value, defense platforms and military workers.
func (s *CombatSystem) planetDefense(p world.Planet) int64 {
	c := s.deps.Rules.Combat
	n := c.PlanetDefense + c.MilitaryFactor.Of(p.Workers[world.Military])
	for _, b := range p.Buildings {
		if def, ok := s.deps.Rules.Building(b.Type); ok && b.Operational {
			n += def.Defense * int64(b.Tier)
		}
	}
	return n
}

// Resolve computes the outcome of b against the current state. The
// attacker wins outright only with at least the threshold multiple of the
// defender's strength; otherwise the defender holds.
func (s *CombatSystem) Resolve(b world.Battle) event.CombatResolved {
	rules := s.deps.Rules.Combat
	atk, def := s.forces(b)
	out := event.CombatResolved{
		Battle:           b.ID,
		Planet:           b.Planet,
		Attacker:         b.Attacker,
		Defender:         b.Defender,
		AttackerStrength: s.fleetStrength(atk),
		DefenderStrength: s.fleetStrength(def),
	}
	if b.Planet != 0 {
		if p, err := s.deps.Planets.Get(b.Planet); err == nil && p.Controlled() && p.Controller == b.Defender {
			out.DefenderStrength = rules.DefenderBonus.Of(out.DefenderStrength + s.planetDefense(p))
		}
	}

	switch {
	case len(atk) == 0:
		out.Winner = b.Defender
		return out
	case out.DefenderStrength == 0 && len(def) == 0:
		out.Winner = b.Attacker
		return out
	}

	winners, losers := def, atk
	if out.AttackerStrength*1000 >= out.DefenderStrength*int64(rules.WinThreshold) {
		out.Winner = b.Attacker
		winners, losers = atk, def
	} else {
		out.Winner = b.Defender
	}
	wl := int(rules.WinnerLosses.Of(int64(len(winners))))
	ll := int(rules.LoserLosses.Of(int64(len(losers))))
	for _, sh := range winners[:wl] {
		out.Destroyed = append(out.Destroyed, sh.ID)
	}
	for _, sh := range losers[:ll] {
		out.Destroyed = append(out.Destroyed, sh.ID)
	}
	if out.Winner == b.Attacker {
		out.AttackerLosses, out.DefenderLosses = wl, ll
	} else {
		out.AttackerLosses, out.DefenderLosses = ll, wl
	}
	return out
}
