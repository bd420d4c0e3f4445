package event

import (
	"fmt"
	"sort"
	"time"

	"github.com/stellardominion/server/internal/core/errs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Routes is the static routing table: event kind to subscribing components.
type Routes map[Kind][]ComponentID

// Options bound a single dispatch pass.
type Options struct {
	MaxIterations int           // events processed per Dispatch before tripping the guard
	Budget        time.Duration // per-handler soft limit; overruns are logged
	HistoryLimit  int           // dispatched events kept for diagnostics, default 100
}

// Failure records one handler error surfaced by Dispatch.
type Failure struct {
	Event     Event
	Component ComponentID
	Err       error
}

// Report summarises a dispatch pass.
type Report struct {
	Delivered int // events drained
	Rejected  int // commands turned into CommandRejected
	Failures  []Failure
}

// Bus delivers events synchronously to subscribers in ascending component
// order. Events queued by handlers join the same pending list and are
// drained in the same pass.
type Bus struct {
	log      *zap.Logger
	opts     Options
	now      func() time.Time
	handlers [NumComponents]Handler
	subs     [NumKinds][]ComponentID

	pending     []Event
	dispatching bool

	history []Event
	histPos int
	histLen int
}

func NewBus(opts Options, log *zap.Logger) *Bus {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10000
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &Bus{
		log:     log,
		opts:    opts,
		now:     time.Now,
		pending: make([]Event, 0, 64),
		history: make([]Event, opts.HistoryLimit),
	}
}

// Register attaches the handler for component c, replacing any previous one.
func (b *Bus) Register(c ComponentID, h Handler) {
	b.handlers[c] = h
}

// Subscribe registers interest of component c in kind k. Delivery order is
// the component order, whatever the order of Subscribe calls.
func (b *Bus) Subscribe(c ComponentID, k Kind) {
	list := b.subs[k]
	i := sort.Search(len(list), func(i int) bool { return list[i] >= c })
	if i < len(list) && list[i] == c {
		return
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = c
	b.subs[k] = list
}

// Install applies a routing table. Every routed component must already
// have a registered handler.
func (b *Bus) Install(routes Routes) error {
	for k, comps := range routes {
		for _, c := range comps {
			if c >= NumComponents || b.handlers[c] == nil {
				return errs.Invalid("bus.install", "route %s -> %s has no handler", k, c)
			}
			b.Subscribe(c, k)
		}
	}
	return nil
}

// Subscribers returns the delivery order for kind k.
func (b *Bus) Subscribers(k Kind) []ComponentID {
	return append([]ComponentID(nil), b.subs[k]...)
}

// Queue appends ev to the pending list.
func (b *Bus) Queue(ev Event) {
	b.pending = append(b.pending, ev)
}

func (b *Bus) Pending() int { return len(b.pending) }

// Drop discards pending events without delivering them.
func (b *Bus) Drop() {
	clear(b.pending)
	b.pending = b.pending[:0]
}

// Dispatch drains the pending list. A handler error on a command turns the
// command into CommandRejected and CommandFailed events; on any other event
// it is recorded in the report. Either way the remaining subscribers of
// that event are skipped. Fatal errors, including the iteration guard,
// abort the pass and drop whatever is still pending.
func (b *Bus) Dispatch() (Report, error) {
	var rep Report
	if b.dispatching {
		return rep, errs.Invalid("bus.dispatch", "re-entrant dispatch")
	}
	b.dispatching = true
	defer func() { b.dispatching = false }()

	for i := 0; i < len(b.pending); i++ {
		if i >= b.opts.MaxIterations {
			err := errs.Circuit("bus.dispatch", b.opts.MaxIterations)
			b.log.Error("事件循環超限", zap.Int("pending", len(b.pending)-i), zap.Error(err))
			b.Drop()
			return rep, err
		}
		ev := b.pending[i]
		rep.Delivered++
		b.record(ev)

		if err := b.deliver(ev, &rep); err != nil {
			b.Drop()
			return rep, err
		}
	}
	b.Drop()
	return rep, nil
}

func (b *Bus) deliver(ev Event, rep *Report) error {
	k := ev.Kind()
	for _, c := range b.subs[k] {
		h := b.handlers[c]
		start := b.now()
		err := h.HandleEvent(ev, b)
		if elapsed := b.now().Sub(start); b.opts.Budget > 0 && elapsed > b.opts.Budget {
			b.log.Warn("處理超時",
				zap.Stringer("component", c),
				zap.Stringer("event", k),
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", b.opts.Budget))
		}
		if err == nil {
			continue
		}
		if errs.IsFatal(err) {
			b.log.Error("致命錯誤",
				zap.Stringer("component", c),
				zap.Stringer("event", k),
				zap.Error(err))
			return err
		}
		rep.Failures = append(rep.Failures, Failure{Event: ev, Component: c, Err: err})
		if IsCommand(ev) {
			rep.Rejected++
			b.log.Info("指令被拒",
				zap.Stringer("command", k),
				zap.Stringer("component", c),
				zap.Error(err))
			b.Queue(CommandRejected{Command: ev, By: c, Reason: err.Error()})
			b.Queue(CommandFailed{Command: k, Faction: CommandFaction(ev), Reason: err.Error()})
		} else {
			b.log.Warn("事件處理失敗",
				zap.Stringer("component", c),
				zap.Stringer("event", k),
				zap.Error(err))
		}
		return nil
	}
	return nil
}

func (b *Bus) record(ev Event) {
	n := len(b.history)
	if n == 0 {
		return
	}
	b.history[b.histPos] = ev
	b.histPos = (b.histPos + 1) % n
	if b.histLen < n {
		b.histLen++
	}
}

// History returns the most recently dispatched events, oldest first.
func (b *Bus) History() []Event {
	n := len(b.history)
	out := make([]Event, 0, b.histLen)
	start := (b.histPos - b.histLen + n) % n
	for i := 0; i < b.histLen; i++ {
		out = append(out, b.history[(start+i)%n])
	}
	return out
}

// FirstFatal returns the first failure that is fatal, nil if none.
func (r Report) FirstFatal() error {
	for _, f := range r.Failures {
		if errs.IsFatal(f.Err) {
			return f.Err
		}
	}
	return nil
}

// Err joins every non-fatal failure into one error, nil when clean.
func (r Report) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f.Err)
	}
	return err
}

// EventErr joins the failures on non-command events. Command failures are
// already reported as CommandFailed events.
func (r Report) EventErr() error {
	var err error
	for _, f := range r.Failures {
		if IsCommand(f.Event) {
			continue
		}
		err = multierr.Append(err, fmt.Errorf("%s handling %s: %w", f.Component, f.Event.Kind(), f.Err))
	}
	return err
}
