package system

import (
	"testing"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stub struct {
	c    event.ComponentID
	hits int
}

func (s *stub) Component() event.ComponentID                 { return s.c }
func (s *stub) HandleEvent(event.Event, event.Emitter) error { s.hits++; return nil }

func TestRunnerOrdersByComponent(t *testing.T) {
	r, err := NewRunner(&stub{c: event.Time}, &stub{c: event.Input}, &stub{c: event.Combat})
	require.NoError(t, err)
	var got []event.ComponentID
	for _, s := range r.Systems() {
		got = append(got, s.Component())
	}
	assert.Equal(t, []event.ComponentID{event.Input, event.Combat, event.Time}, got)
}

func TestRunnerRejectsDuplicateSlots(t *testing.T) {
	_, err := NewRunner(&stub{c: event.Resource}, &stub{c: event.Resource})
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)
}

func TestAttachInstallsRoutes(t *testing.T) {
	res := &stub{c: event.Resource}
	obs := &stub{c: event.Observer}
	r, err := NewRunner(res)
	require.NoError(t, err)

	bus := event.NewBus(event.Options{}, zap.NewNop())
	require.NoError(t, r.Attach(bus, event.Routes{
		event.KindTickCompleted: {event.Observer, event.Resource},
	}, map[event.ComponentID]event.Handler{event.Observer: obs}))

	assert.Equal(t, []event.ComponentID{event.Resource, event.Observer}, bus.Subscribers(event.KindTickCompleted))
	bus.Queue(event.TickCompleted{Tick: 1})
	_, err = bus.Dispatch()
	require.NoError(t, err)
	assert.Equal(t, 1, res.hits)
	assert.Equal(t, 1, obs.hits)
}

func TestAttachRejectsClash(t *testing.T) {
	r, err := NewRunner(&stub{c: event.Combat})
	require.NoError(t, err)
	bus := event.NewBus(event.Options{}, zap.NewNop())
	err = r.Attach(bus, nil, map[event.ComponentID]event.Handler{event.Combat: &stub{}})
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)
}
