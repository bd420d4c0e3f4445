package data

import (
	"testing"

	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedRulesMatchDefaults(t *testing.T) {
	r, err := LoadRules("../../data/yaml/rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, MustDefault(), r)
}

func TestParseRulesOverlay(t *testing.T) {
	r, err := ParseRules([]byte("combat:\n  win_threshold: 1200\npopulation:\n  growth_rate: 50\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 1200, r.Combat.WinThreshold)
	assert.EqualValues(t, 50, r.Population.GrowthRate)
	assert.EqualValues(t, 2000, r.Combat.DefenderBonus, "unset fields keep their default")

	mine, ok := r.Building("mine")
	require.True(t, ok)
	assert.Equal(t, world.Mining, mine.Labor)
	assert.EqualValues(t, 10, r.Strength("scout"))
	assert.Zero(t, r.Strength("dreadnought"))
}

func TestParseRulesRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"duplicate building", "buildings:\n  - type: mine\n  - type: mine\n"},
		{"untyped building", "buildings:\n  - build_ticks: 3\n"},
		{"negative cost", "buildings:\n  - type: mine\n    cost: { minerals: -5 }\n"},
		{"unknown labor", "buildings:\n  - type: mine\n    labor: piracy\n"},
		{"stalled ship", "ships:\n  - class: barge\n    speed: 0\n"},
		{"zero win threshold", "combat:\n  win_threshold: 0\n"},
		{"losses over 100%", "combat:\n  loser_losses: 1500\n"},
		{"bad reserve", "population:\n  min_unassigned: -1\n"},
		{"not yaml", "buildings: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPermille(t *testing.T) {
	assert.EqualValues(t, 10, Permille(10).Of(1000))
	assert.EqualValues(t, 0, Permille(10).Of(99))
	assert.EqualValues(t, 1, Permille(10).Ceil(1))
	assert.EqualValues(t, 10, Permille(10).Ceil(1000))
	assert.EqualValues(t, 11, Permille(10).Ceil(1001))
	assert.EqualValues(t, 0, Permille(10).Ceil(0))
}
