package scripting

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecideReturnsStampedCommands(t *testing.T) {
	e, err := NewEngineFromSource(zap.NewNop(), `
function decide(ctx)
  local p = ctx.planets[1]
  return {
    { type = "build_structure", planet = p.id, building = "mine", faction = 99 },
    { type = "allocate_workers", planet = p.id, workers = { mining = 60, idle = 40 } },
    { type = "nonsense" },
  }
end`)
	require.NoError(t, err)
	defer e.Close()
	require.True(t, e.HasDecider())

	cmds, err := e.Decide(View{
		Tick:    5,
		Faction: world.Faction{ID: 2, AITag: "economic"},
		Planets: []world.Planet{{ID: 7, Population: 100, Controller: 2}},
	})
	require.NoError(t, err)
	require.Len(t, cmds, 2, "malformed commands are dropped")
	assert.Equal(t, event.BuildStructure{Faction: 2, Planet: 7, Building: "mine"}, cmds[0])
	alloc := cmds[1].(event.AllocateWorkers)
	assert.EqualValues(t, 2, alloc.Faction)
	assert.EqualValues(t, 60, alloc.Workers[world.Mining])
}

func TestSandboxHasNoRandom(t *testing.T) {
	e, err := NewEngineFromSource(zap.NewNop(), `
function decide(ctx)
  if math.random ~= nil or os ~= nil or io ~= nil then
    error("non-deterministic library exposed")
  end
  return {}
end`)
	require.NoError(t, err)
	defer e.Close()
	cmds, err := e.Decide(View{Faction: world.Faction{ID: 1}})
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestScriptErrorSurfaces(t *testing.T) {
	e, err := NewEngineFromSource(zap.NewNop(), `function decide(ctx) error("boom") end`)
	require.NoError(t, err)
	defer e.Close()
	_, err = e.Decide(View{Faction: world.Faction{ID: 3}})
	assert.ErrorContains(t, err, "boom")
}

func TestShippedFactionScripts(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "scripts")
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	home := world.Planet{
		ID:         1,
		Population: 1000,
		Workers:    world.Idle(1000),
		Resources:  world.Bundle(world.Minerals, 1000, world.Food, 5000, world.Energy, 500),
		Controller: 2,
	}
	v := View{
		Tick:    10,
		Faction: world.Faction{ID: 2, AITag: "economic"},
		Planets: []world.Planet{home, {ID: 2}},
		Slots:   map[world.PlanetID]int{1: 10, 2: 10},
	}
	first, err := e.Decide(v)
	require.NoError(t, err)
	second, err := e.Decide(v)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same view, same decisions")

	var kinds []event.Kind
	for _, c := range first {
		kinds = append(kinds, c.Kind())
		assert.EqualValues(t, 2, event.CommandFaction(c))
	}
	assert.Contains(t, kinds, event.KindAllocateWorkers)
	assert.Contains(t, kinds, event.KindBuildStructure)
}
