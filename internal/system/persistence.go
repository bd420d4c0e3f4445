package system

import (
	"context"
	"errors"
	"time"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/persist"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
)

// StateIO is the simulation root as seen by persistence: it can capture
// its full state, replace it with a snapshot, or start over.
type StateIO interface {
	Capture() *world.Snapshot
	Restore(snap *world.Snapshot) error
	Reset() error
}

type stagedKind int

const (
	stageSave stagedKind = iota + 1
	stageLoad
	stageReset
)

type staged struct {
	kind stagedKind
	slot string
	snap *world.Snapshot
	auto bool
}

// PersistenceSystem handles Save, Load and NewGame, and autosaves every
// interval ticks. Swapping the whole world from inside a handler would
// pull state out from under the systems still running in the pass, so
// requests are staged and applied by Settle once dispatch is idle.
type PersistenceSystem struct {
	store    persist.Store
	io       StateIO
	log      *zap.Logger
	interval uint64
	autoSlot string
	timeout  time.Duration
	pending  []staged
}

func NewPersistenceSystem(store persist.Store, io StateIO, log *zap.Logger, intervalTicks uint64, autoSlot string, timeout time.Duration) *PersistenceSystem {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PersistenceSystem{
		store:    store,
		io:       io,
		log:      log,
		interval: intervalTicks,
		autoSlot: autoSlot,
		timeout:  timeout,
	}
}

func (s *PersistenceSystem) Component() event.ComponentID { return event.Persistence }

func (s *PersistenceSystem) HandleEvent(ev event.Event, _ event.Emitter) error {
	switch e := ev.(type) {
	case event.TickCompleted:
		if s.store != nil && s.interval > 0 && s.autoSlot != "" && e.Tick%s.interval == 0 {
			s.pending = append(s.pending, staged{kind: stageSave, slot: s.autoSlot, auto: true})
		}
	case event.Save:
		if s.store == nil {
			return errs.Invalid("persistence.save", "saving is disabled")
		}
		if e.Slot == "" {
			return errs.Invalid("persistence.save", "empty slot name")
		}
		s.pending = append(s.pending, staged{kind: stageSave, slot: e.Slot})
	case event.Load:
		if s.store == nil {
			return errs.Invalid("persistence.load", "saving is disabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		snap, _, err := s.store.Load(ctx, e.Slot)
		if errors.Is(err, persist.ErrNoSave) {
			return errs.Invalid("persistence.load", "slot %q is empty", e.Slot)
		}
		if err != nil {
			return errs.Invalid("persistence.load", "%v", err)
		}
		s.pending = append(s.pending, staged{kind: stageLoad, slot: e.Slot, snap: snap})
	case event.NewGame:
		s.pending = append(s.pending, staged{kind: stageReset})
	}
	return nil
}

// Pending reports whether Settle has work to do.
func (s *PersistenceSystem) Pending() bool { return len(s.pending) > 0 }

// Settle applies staged requests in arrival order and returns the events
// describing the results. Only the last world replacement (load or new
// game) takes effect; saves before it capture the state they saw.
func (s *PersistenceSystem) Settle(ctx context.Context) []event.Event {
	if len(s.pending) == 0 {
		return nil
	}
	work := s.pending
	s.pending = nil

	last := -1
	for i, w := range work {
		if w.kind == stageLoad || w.kind == stageReset {
			last = i
		}
	}

	var out []event.Event
	for i, w := range work {
		switch w.kind {
		case stageSave:
			out = append(out, s.save(ctx, w))
		case stageLoad:
			if i != last {
				continue
			}
			if err := s.io.Restore(w.snap); err != nil {
				s.log.Error("讀檔失敗", zap.String("slot", w.slot), zap.Error(err))
				out = append(out, event.CommandFailed{Command: event.KindLoad, Reason: err.Error()})
				continue
			}
			s.log.Info("讀檔完成", zap.String("slot", w.slot), zap.Uint64("tick", w.snap.Tick))
			out = append(out, event.GameLoaded{Slot: w.slot, Tick: w.snap.Tick})
		case stageReset:
			if i != last {
				continue
			}
			if err := s.io.Reset(); err != nil {
				s.log.Error("新遊戲建立失敗", zap.Error(err))
				out = append(out, event.CommandFailed{Command: event.KindNewGame, Reason: err.Error()})
				continue
			}
			s.log.Info("新遊戲開始")
			out = append(out, event.GameReset{})
		}
	}
	return out
}

func (s *PersistenceSystem) save(ctx context.Context, w staged) event.Event {
	snap := s.io.Capture()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec, err := s.store.Save(ctx, w.slot, snap)
	if err != nil {
		s.log.Error("存檔失敗", zap.String("slot", w.slot), zap.Bool("auto", w.auto), zap.Error(err))
		return event.CommandFailed{Command: event.KindSave, Reason: err.Error()}
	}
	if w.auto {
		s.log.Debug("自動存檔完成", zap.String("slot", w.slot), zap.Uint64("tick", rec.Tick))
	} else {
		s.log.Info("存檔完成", zap.String("slot", w.slot), zap.Uint64("tick", rec.Tick), zap.Int("bytes", rec.Size))
	}
	return event.GameSaved{Slot: w.slot, ID: rec.ID.String(), Tick: rec.Tick}
}
