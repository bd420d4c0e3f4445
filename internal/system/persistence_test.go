package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/persist"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWorld is a StateIO whose whole state is a tick counter.
type fakeWorld struct {
	tick     uint64
	resets   int
	restores int
	failNext error
}

func (w *fakeWorld) Capture() *world.Snapshot {
	return &world.Snapshot{Version: world.SnapshotVersion, Tick: w.tick}
}

func (w *fakeWorld) Restore(snap *world.Snapshot) error {
	if err := w.failNext; err != nil {
		w.failNext = nil
		return err
	}
	w.restores++
	w.tick = snap.Tick
	return nil
}

func (w *fakeWorld) Reset() error {
	w.resets++
	w.tick = 0
	return nil
}

func newPersistence(t *testing.T, interval uint64) (*PersistenceSystem, *fakeWorld, persist.Store) {
	t.Helper()
	store, err := persist.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	w := &fakeWorld{}
	return NewPersistenceSystem(store, w, zap.NewNop(), interval, "auto", time.Second), w, store
}

func TestSaveThenLoad(t *testing.T) {
	ps, w, _ := newPersistence(t, 0)
	ctx := context.Background()
	rec := &recorder{}

	w.tick = 120
	require.NoError(t, ps.HandleEvent(event.Save{Slot: "one"}, rec))
	assert.True(t, ps.Pending())
	out := ps.Settle(ctx)
	require.Len(t, out, 1)
	saved := out[0].(event.GameSaved)
	assert.Equal(t, "one", saved.Slot)
	assert.EqualValues(t, 120, saved.Tick)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, ps.Pending())

	w.tick = 500
	require.NoError(t, ps.HandleEvent(event.Load{Slot: "one"}, rec))
	assert.EqualValues(t, 500, w.tick, "load waits for Settle")
	out = ps.Settle(ctx)
	assert.Equal(t, []event.Event{event.GameLoaded{Slot: "one", Tick: 120}}, out)
	assert.EqualValues(t, 120, w.tick)
}

func TestLoadRejectsEmptySlot(t *testing.T) {
	ps, _, _ := newPersistence(t, 0)
	err := ps.HandleEvent(event.Load{Slot: "nothing"}, &recorder{})
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)
	assert.False(t, ps.Pending())
}

func TestSaveNeedsStoreAndSlot(t *testing.T) {
	ps, _, _ := newPersistence(t, 0)
	assert.ErrorIs(t, ps.HandleEvent(event.Save{}, &recorder{}), errs.ErrInvalidOperation)

	off := NewPersistenceSystem(nil, &fakeWorld{}, zap.NewNop(), 10, "auto", 0)
	assert.ErrorIs(t, off.HandleEvent(event.Save{Slot: "x"}, &recorder{}), errs.ErrInvalidOperation)
	assert.ErrorIs(t, off.HandleEvent(event.Load{Slot: "x"}, &recorder{}), errs.ErrInvalidOperation)
	require.NoError(t, off.HandleEvent(event.TickCompleted{Tick: 10}, &recorder{}))
	assert.False(t, off.Pending(), "no autosave without a store")
}

func TestAutosaveInterval(t *testing.T) {
	ps, w, store := newPersistence(t, 3)
	for tick := uint64(1); tick <= 6; tick++ {
		w.tick = tick
		require.NoError(t, ps.HandleEvent(event.TickCompleted{Tick: tick}, &recorder{}))
		ps.Settle(context.Background())
	}
	_, rec, err := store.Load(context.Background(), "auto")
	require.NoError(t, err)
	assert.EqualValues(t, 6, rec.Tick)
}

func TestOnlyLastReplacementApplies(t *testing.T) {
	ps, w, _ := newPersistence(t, 0)
	ctx := context.Background()
	rec := &recorder{}

	w.tick = 40
	require.NoError(t, ps.HandleEvent(event.Save{Slot: "a"}, rec))
	ps.Settle(ctx)

	w.tick = 90
	require.NoError(t, ps.HandleEvent(event.NewGame{}, rec))
	require.NoError(t, ps.HandleEvent(event.Save{Slot: "b"}, rec))
	require.NoError(t, ps.HandleEvent(event.Load{Slot: "a"}, rec))
	out := ps.Settle(ctx)

	require.Len(t, out, 2)
	assert.Equal(t, event.KindGameSaved, out[0].Kind())
	assert.EqualValues(t, 90, out[0].(event.GameSaved).Tick)
	assert.Equal(t, event.GameLoaded{Slot: "a", Tick: 40}, out[1])
	assert.Zero(t, w.resets)
	assert.Equal(t, 1, w.restores)
}

func TestFailedRestoreReportsCommandFailed(t *testing.T) {
	ps, w, _ := newPersistence(t, 0)
	ctx := context.Background()
	require.NoError(t, ps.HandleEvent(event.Save{Slot: "a"}, &recorder{}))
	ps.Settle(ctx)

	w.failNext = errors.New("bad planet")
	require.NoError(t, ps.HandleEvent(event.Load{Slot: "a"}, &recorder{}))
	out := ps.Settle(ctx)
	require.Len(t, out, 1)
	failed := out[0].(event.CommandFailed)
	assert.Equal(t, event.KindLoad, failed.Command)
	assert.Contains(t, failed.Reason, "bad planet")
}

func TestNewGameResets(t *testing.T) {
	ps, w, _ := newPersistence(t, 0)
	w.tick = 77
	require.NoError(t, ps.HandleEvent(event.NewGame{}, &recorder{}))
	out := ps.Settle(context.Background())
	assert.Equal(t, []event.Event{event.GameReset{}}, out)
	assert.Equal(t, 1, w.resets)
	assert.Zero(t, w.tick)
}
