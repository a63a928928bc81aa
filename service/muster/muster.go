package muster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/northpole/dispatch/internal/clock"
	"github.com/northpole/dispatch/internal/idgen"
	"github.com/northpole/dispatch/service/gate"
	"github.com/northpole/dispatch/service/messaging"
)

// Kind identifies an actor population
type Kind string

const (
	KindReindeer Kind = "reindeer"
	KindElf      Kind = "elf"
)

// Cause tags a wake event with the group that triggered it. The tag is
// informational only; the dispatcher re-checks real pending state on wake.
type Cause string

const (
	CauseReindeerGroupReady Cause = "reindeerGroupReady"
	CauseElfGroupReady      Cause = "elfGroupReady"
)

// Cause returns the wake cause matching the kind
func (k Kind) Cause() Cause {
	if k == KindReindeer {
		return CauseReindeerGroupReady
	}
	return CauseElfGroupReady
}

// WakeEvent wakes the dispatcher; exactly one is published per completed
// group.
type WakeEvent struct {
	ID    string    `json:"id"`
	Cause Cause     `json:"cause"`
	At    time.Time `json:"at"`
}

// Hooks are fire-and-forget observation callbacks. They run outside the
// counter critical section and must not block.
type Hooks struct {
	OnArrived     func(actorID, waiting int)
	OnGroupFormed func()
}

// Muster tracks arrivals of a single kind toward the group threshold.
type Muster struct {
	kind      Kind
	threshold int
	wake      messaging.Queue[WakeEvent]
	gate      *gate.Gate
	hooks     Hooks

	mu    sync.Mutex
	count int
}

// Option customises a Muster
type Option func(*Muster)

// WithHooks sets the observation hooks
func WithHooks(hooks Hooks) Option {
	return func(m *Muster) {
		m.hooks = hooks
	}
}

// New creates a muster for the given kind and threshold
func New(kind Kind, threshold int, wake messaging.Queue[WakeEvent], g *gate.Gate, options ...Option) (*Muster, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("%s threshold must be >= 1, got %d", kind, threshold)
	}
	if wake == nil {
		return nil, fmt.Errorf("wake queue is required")
	}
	if g == nil {
		return nil, fmt.Errorf("release gate is required")
	}
	m := &Muster{
		kind:      kind,
		threshold: threshold,
		wake:      wake,
		gate:      g,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Kind returns the actor kind this muster counts
func (m *Muster) Kind() Kind {
	return m.kind
}

// Threshold returns the group size
func (m *Muster) Threshold() int {
	return m.threshold
}

// Arrive records one arrival. The returned ticket blocks until the arrival's
// group is released. last reports whether this arrival completed the group;
// the completing arrival has already reset the counter, sealed the cohort
// and published the wake event by the time Arrive returns.
func (m *Muster) Arrive(ctx context.Context, actorID int) (*gate.Ticket, bool, error) {
	m.mu.Lock()
	ticket := m.gate.Enroll()
	m.count++
	waiting := m.count
	last := m.count == m.threshold
	if last {
		// Reset before signalling, so an arrival racing in behind us
		// counts toward the next group, not this one.
		m.count = 0
		m.gate.Seal()
		evt := WakeEvent{ID: idgen.New(), Cause: m.kind.Cause(), At: clock.Now()}
		if err := m.wake.Publish(ctx, &evt); err != nil {
			m.mu.Unlock()
			return nil, false, fmt.Errorf("failed to publish %s wake: %w", m.kind, err)
		}
	}
	m.mu.Unlock()

	if m.hooks.OnArrived != nil {
		m.hooks.OnArrived(actorID, waiting)
	}
	if last && m.hooks.OnGroupFormed != nil {
		m.hooks.OnGroupFormed()
	}
	return ticket, last, nil
}

// Pending returns the number of completed groups awaiting dispatch. This is
// the authoritative readiness state the dispatcher consults on wake.
func (m *Muster) Pending() int {
	return m.gate.Sealed()
}

// Waiting returns the current arrival count toward the next group.
func (m *Muster) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
