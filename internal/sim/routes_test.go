package sim

import (
	"slices"
	"testing"

	"github.com/stellardominion/server/internal/core/event"
	"github.com/stretchr/testify/assert"
)

func TestEveryCommandIsAdmittedFirst(t *testing.T) {
	for k := event.Kind(0); k < event.NumKinds; k++ {
		if k.Class() != event.ClassCommand {
			continue
		}
		route, ok := Routes[k]
		if assert.True(t, ok, "%s has no route", k) {
			assert.Equal(t, event.Input, route[0], k.String())
		}
	}
}

func TestStateChangesReachObserver(t *testing.T) {
	for k := event.Kind(0); k < event.NumKinds; k++ {
		if k.Class() == event.ClassStateChange {
			assert.Contains(t, Routes[k], event.Observer, k.String())
		}
	}
}

func TestMutationOwnership(t *testing.T) {
	type key struct {
		trigger event.Kind
		manager event.ComponentID
		method  string
	}
	seen := make(map[key]event.ComponentID)
	for _, m := range Mutations {
		k := key{m.Trigger, m.Manager, m.Method}
		if prev, dup := seen[k]; dup {
			t.Errorf("%s.%s on %s has callers %s and %s", m.Manager, m.Method, m.Trigger, prev, m.Caller)
		}
		seen[k] = m.Caller
		assert.True(t, slices.Contains(Routes[m.Trigger], m.Caller),
			"%s calls %s.%s on %s but is not routed it", m.Caller, m.Manager, m.Method, m.Trigger)
	}
}
