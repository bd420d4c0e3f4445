package system

import (
	"sort"

	"github.com/stellardominion/server/internal/core/errs"
	"github.com/stellardominion/server/internal/core/event"
)

// Runner holds the fixed, ordered set of systems and attaches them to a bus.
type Runner struct {
	systems []System
}

// NewRunner validates the system set: one system per component slot.
func NewRunner(systems ...System) (*Runner, error) {
	sorted := make([]System, len(systems))
	copy(sorted, systems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Component() < sorted[j].Component()
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Component() == sorted[i-1].Component() {
			return nil, errs.Invalid("runner.new", "two systems claim component %s", sorted[i].Component())
		}
	}
	return &Runner{systems: sorted}, nil
}

// Systems returns the systems in delivery order.
func (r *Runner) Systems() []System {
	return append([]System(nil), r.systems...)
}

// Attach registers every system on the bus. extra handlers (managers,
// observers) are registered alongside before the routing table is
// installed.
func (r *Runner) Attach(bus *event.Bus, routes event.Routes, extra map[event.ComponentID]event.Handler) error {
	for _, s := range r.systems {
		bus.Register(s.Component(), s)
	}
	for c, h := range extra {
		for _, s := range r.systems {
			if s.Component() == c {
				return errs.Invalid("runner.attach", "component %s registered twice", c)
			}
		}
		bus.Register(c, h)
	}
	return bus.Install(routes)
}
