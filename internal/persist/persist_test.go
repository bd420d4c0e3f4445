package persist

import (
	"context"
	"math"
	"testing"

	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *world.Snapshot {
	return &world.Snapshot{
		Version:       world.SnapshotVersion,
		Tick:          4242,
		NextPlanetID:  3,
		NextShipID:    2,
		NextFactionID: 2,
		Planets: []world.Planet{
			{
				ID:         1,
				Name:       "Kepler",
				Orbit:      world.OrbitalElements{SemiMajorAxis: 1.5, Period: 600, Phase: 0.25},
				Resources:  world.Bundle(world.Minerals, int64(math.MaxInt64)),
				Capacity:   world.Bundle(world.Minerals, int64(math.MaxInt64)),
				Population: 1000,
				Workers:    world.Idle(1000),
				Buildings:  []world.Building{{Type: "mine", Tier: 1, Operational: true}},
				Controller: 1,
			},
			{ID: 2, Name: "Barren"},
		},
		Ships: []world.Ship{{
			ID: 1, Class: "scout", Position: world.Vector2{X: 0.1, Y: -2.3},
			Fuel: 7, FuelCapacity: 100, Owner: 1,
		}},
		Factions: []world.Faction{{ID: 1, Name: "Terran Union", Player: true, Score: 5}},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	snap := sampleSnapshot()
	payload, sum, err := Encode(snap)
	require.NoError(t, err)

	got, err := Decode(payload, sum)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestCodecDetectsCorruption(t *testing.T) {
	payload, sum, err := Encode(sampleSnapshot())
	require.NoError(t, err)

	payload[len(payload)/2] ^= 0xff
	_, err = Decode(payload, sum)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCodecRejectsOtherVersions(t *testing.T) {
	snap := sampleSnapshot()
	snap.Version = world.SnapshotVersion + 1
	payload, sum, err := Encode(snap)
	require.NoError(t, err)

	_, err = Decode(payload, sum)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	snap := sampleSnapshot()

	rec, err := s.Save(ctx, "slot1", snap)
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), rec.Tick)

	got, loaded, err := s.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, rec.Size, loaded.Size)
}

func TestSQLiteOverwriteAndList(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	snap := sampleSnapshot()

	_, err := s.Save(ctx, "b", snap)
	require.NoError(t, err)
	first, err := s.Save(ctx, "a", snap)
	require.NoError(t, err)
	snap.Tick = 9000
	second, err := s.Save(ctx, "a", snap)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Slot)
	assert.Equal(t, uint64(9000), recs[0].Tick)
	assert.Equal(t, "b", recs[1].Slot)
}

func TestSQLiteMissingSlot(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, _, err := s.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNoSave)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNoSave)
}

func TestSQLiteDelete(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	_, err := s.Save(ctx, "x", sampleSnapshot())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "x"))
	_, _, err = s.Load(ctx, "x")
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestSQLiteCorruptPayload(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	_, err := s.Save(ctx, "x", sampleSnapshot())
	require.NoError(t, err)
	require.NoError(t, s.corrupt(ctx, "x"))

	_, _, err = s.Load(ctx, "x")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveRejectsBadSlot(t *testing.T) {
	s := openMemory(t)
	_, err := s.Save(context.Background(), "", sampleSnapshot())
	assert.Error(t, err)
}
