package world

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSubIsAtomic(t *testing.T) {
	have := Bundle(Minerals, 100, Energy, 5)
	cost := Bundle(Minerals, 50, Energy, 10)

	got, err := have.Sub(cost)
	require.Error(t, err)
	assert.Equal(t, have, got, "failed subtraction must not deduct anything")
	assert.Equal(t, int64(100), have[Minerals])

	got, err = have.Sub(Bundle(Minerals, 100, Energy, 5))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestSubRejectsNegativeCost(t *testing.T) {
	have := Bundle(Food, 10)
	_, err := have.Sub(Bundle(Food, -5))
	assert.Error(t, err)
}

func TestAddRejectsNegativeResult(t *testing.T) {
	b := Bundle(Food, 3)
	got, err := b.Add(Bundle(Food, -4))
	require.Error(t, err)
	assert.Equal(t, b, got)

	got, err = b.Add(Bundle(Food, -3, Alloys, 2))
	require.NoError(t, err)
	assert.Equal(t, Bundle(Alloys, 2), got)
}

func TestAddRejectsOverflow(t *testing.T) {
	b := Bundle(Minerals, int64(math.MaxInt64))
	_, err := b.Add(Bundle(Minerals, 1))
	assert.Error(t, err)
}

func TestAffordAndFits(t *testing.T) {
	have := Bundle(Minerals, 10, Food, 2)
	assert.True(t, have.CanAfford(Bundle(Minerals, 10)))
	assert.False(t, have.CanAfford(Bundle(Food, 3)))

	capacity := Bundle(Minerals, 12, Food, 2)
	assert.True(t, have.Fits(Bundle(Minerals, 2), capacity))
	assert.False(t, have.Fits(Bundle(Minerals, 3), capacity))
	assert.Equal(t, Bundle(Minerals, 2), have.Headroom(capacity))
}

func TestBundleJSONUsesNames(t *testing.T) {
	b := Bundle(Minerals, 7, Research, 1)
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"minerals":7,"research":1}`, string(data))

	var back ResourceBundle
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)

	assert.Error(t, json.Unmarshal([]byte(`{"gold":1}`), &back))
}

func TestBundleYAML(t *testing.T) {
	var b ResourceBundle
	require.NoError(t, yaml.Unmarshal([]byte("minerals: 100\nalloys: 20\n"), &b))
	assert.Equal(t, Bundle(Minerals, 100, Alloys, 20), b)
}

func TestWorkerAllocationAcceptsIdleAlias(t *testing.T) {
	var a WorkerAllocation
	require.NoError(t, json.Unmarshal([]byte(`{"mining":60,"idle":40}`), &a))
	assert.Equal(t, int64(60), a[Mining])
	assert.Equal(t, int64(40), a[Unassigned])
	assert.Equal(t, int64(100), a.Sum())
	assert.Equal(t, int64(60), a.Assigned())
}

func TestTrajectoryBurnSumsToCost(t *testing.T) {
	traj := Trajectory{DepartureTick: 10, ArrivalTick: 17, FuelCost: 23}
	var total int64
	for tick := uint64(11); tick <= 17; tick++ {
		due := traj.BurnDue(tick)
		assert.GreaterOrEqual(t, due, int64(0))
		traj.FuelBurned += due
		total += due
	}
	assert.Equal(t, int64(23), total)
	assert.Zero(t, traj.BurnDue(18))
}
