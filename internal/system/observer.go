package system

import (
	"github.com/stellardominion/server/internal/core/event"
	"go.uber.org/zap"
)

// Sink receives observer notifications. Publish must not block the game
// loop.
type Sink interface {
	Publish(ev event.Event)
}

// ObserverSystem fans state changes out to sinks (the gateway, telemetry)
// and keeps per-kind counters.
type ObserverSystem struct {
	log    *zap.Logger
	sinks  []Sink
	counts [event.NumKinds]uint64
}

func NewObserverSystem(log *zap.Logger, sinks ...Sink) *ObserverSystem {
	return &ObserverSystem{log: log, sinks: sinks}
}

func (s *ObserverSystem) Component() event.ComponentID { return event.Observer }

// AddSink attaches another sink.
func (s *ObserverSystem) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

func (s *ObserverSystem) HandleEvent(ev event.Event, _ event.Emitter) error {
	k := ev.Kind()
	s.counts[k]++
	switch e := ev.(type) {
	case event.ResourceShortage:
		s.log.Debug("資源短缺", zap.Uint64("planet", uint64(e.Planet)), zap.Stringer("shortfall", e.Shortfall))
	case event.CombatResolved:
		s.log.Info("戰鬥結束",
			zap.Uint64("battle", e.Battle),
			zap.Uint64("winner", uint64(e.Winner)),
			zap.Int64("attacker_strength", e.AttackerStrength),
			zap.Int64("defender_strength", e.DefenderStrength),
			zap.Int("destroyed", len(e.Destroyed)))
	case event.PlanetConquered:
		s.log.Info("星球易主", zap.Uint64("planet", uint64(e.Planet)), zap.Uint64("from", uint64(e.From)), zap.Uint64("to", uint64(e.To)))
	}
	if k.Class() != event.ClassStateChange {
		return nil
	}
	for _, sink := range s.sinks {
		sink.Publish(ev)
	}
	return nil
}

// Count returns how many events of kind k the observer has seen.
func (s *ObserverSystem) Count(k event.Kind) uint64 { return s.counts[k] }
