package system

import (
	"testing"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openSpaceBattle parks 5 Alpha scouts and 10 Beta scouts in one cell and
// runs combat until the battle resolves.
func openSpaceBattle(t *testing.T) (*fixture, event.CombatResolved) {
	t.Helper()
	f := newFixture(t)
	pos := world.Vector2{X: 3.1, Y: -4.2}
	f.fleet(t, f.alpha, "scout", 5, pos)
	f.fleet(t, f.beta, "scout", 10, pos)
	sys := NewCombatSystem(f.deps)

	f.clock.tick = 1
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))
	trig := f.rec.of(event.KindBattleTriggered)
	require.Len(t, trig, 1)
	bt := trig[0].(event.BattleTriggered)
	assert.Equal(t, f.alpha, bt.Defender)
	assert.Equal(t, f.beta, bt.Attacker)

	f.clock.tick = 2
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 2}, f.rec))
	res := f.rec.of(event.KindCombatResolved)
	require.Len(t, res, 1)
	return f, res[0].(event.CombatResolved)
}

func TestOpenSpaceBattleIsExact(t *testing.T) {
	f, out := openSpaceBattle(t)

	assert.EqualValues(t, 100, out.AttackerStrength)
	assert.EqualValues(t, 50, out.DefenderStrength)
	assert.Equal(t, f.beta, out.Winner)
	assert.Equal(t, 3, out.AttackerLosses)
	assert.Equal(t, 5, out.DefenderLosses)
	assert.Len(t, out.Destroyed, 8)

	f.deliver(t, out)
	assert.Empty(t, f.deps.Ships.OwnedBy(f.alpha))
	assert.Len(t, f.deps.Ships.OwnedBy(f.beta), 7)

	beta, err := f.deps.Factions.Get(f.beta)
	require.NoError(t, err)
	assert.EqualValues(t, 5*f.deps.Rules.Score.ShipDestroyed, beta.Score)
}

func TestBattleOutcomeRepeats(t *testing.T) {
	_, first := openSpaceBattle(t)
	for i := 0; i < 5; i++ {
		_, again := openSpaceBattle(t)
		assert.Equal(t, first, again)
	}
}

func TestDefenderHoldsBelowThreshold(t *testing.T) {
	f := newFixture(t)
	pos := world.Vector2{X: 1, Y: 1}
	f.fleet(t, f.alpha, "scout", 10, pos)
	f.fleet(t, f.beta, "scout", 14, pos)
	sys := NewCombatSystem(f.deps)

	out := sys.Resolve(world.Battle{ID: 1, Position: pos, Attacker: f.beta, Defender: f.alpha})

	assert.Equal(t, f.alpha, out.Winner)
	assert.Equal(t, 14, out.AttackerLosses)
	assert.Equal(t, 3, out.DefenderLosses)
}

func TestLossesTakeWeakestFirst(t *testing.T) {
	f := newFixture(t)
	pos := world.Vector2{X: 0.2, Y: 0.2}
	war := f.fleet(t, f.beta, "warship", 3, pos)
	scouts := f.fleet(t, f.beta, "scout", 4, pos)
	f.fleet(t, f.alpha, "transport", 1, pos)

	out := NewCombatSystem(f.deps).Resolve(world.Battle{ID: 1, Position: pos, Attacker: f.beta, Defender: f.alpha})

	require.Equal(t, f.beta, out.Winner)
	assert.Equal(t, 2, out.AttackerLosses)
	assert.Contains(t, out.Destroyed, scouts[0])
	assert.Contains(t, out.Destroyed, scouts[1])
	assert.NotContains(t, out.Destroyed, war[0])
}

func TestAssaultConquersPlanet(t *testing.T) {
	f := newFixture(t)
	target := f.planet(t, world.Planet{Population: 100, Controller: f.alpha})
	f.fleet(t, f.alpha, "scout", 1, world.Vector2{})
	attackers := make([]world.ShipID, 4)
	for i := range attackers {
		attackers[i] = f.ship(t, world.Ship{Class: "warship", Owner: f.beta, Docked: target})
	}
	sys := NewCombatSystem(f.deps)

	require.NoError(t, sys.HandleEvent(event.AttackTarget{Faction: f.beta, Ship: attackers[0], TargetPlanet: target}, f.rec))
	require.Len(t, f.rec.of(event.KindBattleTriggered), 1)

	err := sys.HandleEvent(event.AttackTarget{Faction: f.beta, Ship: attackers[1], TargetPlanet: target}, f.rec)
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)

	f.clock.tick = 1
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))
	res := f.rec.of(event.KindCombatResolved)
	require.Len(t, res, 1)
	out := res[0].(event.CombatResolved)
	// Planet defense 20 doubled; 200 >= 1.5 * 40.
	assert.EqualValues(t, 40, out.DefenderStrength)
	assert.Equal(t, f.beta, out.Winner)

	conq := f.rec.of(event.KindPlanetConquered)
	require.Len(t, conq, 1)
	f.deliver(t, conq[0])
	assert.Equal(t, f.beta, f.get(t, target).Controller)
}

func TestColonizeUncontrolledPlanet(t *testing.T) {
	f := newFixture(t)
	target := f.planet(t, world.Planet{Name: "Empty"})
	colony := f.ship(t, world.Ship{Class: "colony", Owner: f.alpha, Docked: target})
	scout := f.ship(t, world.Ship{Class: "scout", Owner: f.alpha, Docked: target})
	sys := NewCombatSystem(f.deps)

	assert.ErrorIs(t, sys.HandleEvent(event.ColonizePlanet{Faction: f.alpha, Ship: scout, Planet: target}, f.rec), errs.ErrInvalidOperation)
	require.NoError(t, sys.HandleEvent(event.ColonizePlanet{Faction: f.alpha, Ship: colony, Planet: target}, f.rec))

	col := f.rec.of(event.KindPlanetColonized)
	require.Len(t, col, 1)
	f.deliver(t, col[0])

	p := f.get(t, target)
	assert.Equal(t, f.alpha, p.Controller)
	assert.EqualValues(t, 1000, p.Population)
	assert.Equal(t, p.Population, p.Workers.Sum())
	assert.False(t, f.deps.Ships.Has(colony))
}

func TestBattlesSurviveRestore(t *testing.T) {
	f := newFixture(t)
	pos := world.Vector2{X: 2, Y: 2}
	f.fleet(t, f.alpha, "scout", 2, pos)
	f.fleet(t, f.beta, "scout", 2, pos)
	sys := NewCombatSystem(f.deps)
	f.clock.tick = 1
	require.NoError(t, sys.HandleEvent(event.TickCompleted{Tick: 1}, f.rec))

	battles, next := sys.Battles()
	require.Len(t, battles, 1)
	assert.Equal(t, world.BattleTriggered, battles[0].State)

	other := NewCombatSystem(f.deps)
	require.NoError(t, other.Restore(battles, next))
	got, _ := other.Battles()
	assert.Equal(t, battles, got)

	f.rec.reset()
	f.clock.tick = 2
	require.NoError(t, other.HandleEvent(event.TickCompleted{Tick: 2}, f.rec))
	assert.Len(t, f.rec.of(event.KindCombatResolved), 1)
	assert.Empty(t, f.rec.of(event.KindBattleTriggered), "a settled location waits a tick")
}
