package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/northpole/dispatch/service/gate"
	"github.com/northpole/dispatch/service/messaging"
	"github.com/northpole/dispatch/service/muster"
	"github.com/northpole/dispatch/tracing"
)

// State describes where the dispatcher currently is in its cycle.
type State int32

const (
	StateSleeping State = iota
	StateResolving
	StateServicingReindeer
	StateServicingElves
)

func (s State) String() string {
	switch s {
	case StateSleeping:
		return "sleeping"
	case StateResolving:
		return "resolving"
	case StateServicingReindeer:
		return "servicingReindeer"
	case StateServicingElves:
		return "servicingElves"
	}
	return "unknown"
}

// Action is the externally observable work performed once a group's gate has
// been opened: preparing the delivery for reindeer, the consultation for
// elves. size is the number of actors admitted.
type Action func(ctx context.Context, size int) error

// Hooks are fire-and-forget observation callbacks; they must not block.
type Hooks struct {
	OnDeliveryStarted      func()
	OnDeliveryFinished     func(count int)
	OnConsultationStarted  func()
	OnConsultationFinished func(count int)
}

// Stats captures how many groups have been serviced so far.
type Stats struct {
	Deliveries    int64
	Consultations int64
}

// Service is the dispatcher: one worker, one group at a time.
type Service struct {
	wake     messaging.Queue[muster.WakeEvent]
	reindeer *muster.Muster
	elves    *muster.Muster

	reindeerGate *gate.Gate
	elfGate      *gate.Gate

	deliver Action
	consult Action
	hooks   Hooks

	state         atomic.Int32
	deliveries    atomic.Int64
	consultations atomic.Int64

	workerWg sync.WaitGroup
	cancelFn context.CancelFunc
	started  atomic.Bool
}

// New creates the dispatcher service
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range options {
		opt(s)
	}
	if s.wake == nil {
		return nil, fmt.Errorf("wake queue is required")
	}
	if s.reindeer == nil || s.elves == nil {
		return nil, fmt.Errorf("reindeer and elf musters are required")
	}
	if s.reindeerGate == nil || s.elfGate == nil {
		return nil, fmt.Errorf("reindeer and elf gates are required")
	}
	return s, nil
}

// Start launches the dispatcher worker. It is an error to start twice.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already started")
	}
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.workerWg.Add(1)
	go s.run(workerCtx)
	return nil
}

// Shutdown stops the dispatcher worker and waits for it to park.
func (s *Service) Shutdown() {
	if s.cancelFn != nil {
		s.cancelFn()
	}
	s.workerWg.Wait()
}

// State returns the dispatcher's current state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Stats returns the number of serviced groups so far.
func (s *Service) Stats() Stats {
	return Stats{
		Deliveries:    s.deliveries.Load(),
		Consultations: s.consultations.Load(),
	}
}

// run sleeps on the wake queue and resolves one wake at a time.
func (s *Service) run(ctx context.Context) {
	defer s.workerWg.Done()

	for {
		msg, err := s.wake.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			// Transient error; back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		s.resolve(ctx, msg.T())
		if err := msg.Ack(); err != nil {
			log.Printf("dispatcher: failed to ack wake: %v", err)
		}
	}
}

// resolve services at most one group per wake. The wake's cause is not
// authoritative: pending state is re-examined with reindeer first, so a wake
// tagged elfGroupReady still dispatches a ready reindeer group ahead of the
// elves.
func (s *Service) resolve(ctx context.Context, evt *muster.WakeEvent) {
	s.state.Store(int32(StateResolving))
	ctx, span := tracing.StartSpan(ctx, "dispatcher.resolve", "CONSUMER")
	span.WithAttributes(map[string]string{"wake.cause": string(evt.Cause), "wake.id": evt.ID})
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	switch {
	case s.reindeer.Pending() > 0:
		err = s.serviceReindeer(ctx)
	case s.elves.Pending() > 0:
		err = s.serviceElves(ctx)
	default:
		// Coalesced duplicate wake; nothing is ready. Back to sleep with
		// no side effects.
	}
	if err != nil {
		log.Printf("dispatcher: %v", err)
	}
	s.state.Store(int32(StateSleeping))
}

func (s *Service) serviceReindeer(ctx context.Context) (err error) {
	s.state.Store(int32(StateServicingReindeer))
	ctx, span := tracing.StartSpan(ctx, "dispatcher.delivery", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if s.hooks.OnDeliveryStarted != nil {
		s.hooks.OnDeliveryStarted()
	}
	size, err := s.reindeerGate.OpenNext()
	if err != nil {
		return fmt.Errorf("failed to open reindeer gate: %w", err)
	}
	span.WithAttributes(map[string]string{"group.size": fmt.Sprintf("%d", size)})
	if s.deliver != nil {
		if err = s.deliver(ctx, size); err != nil {
			return fmt.Errorf("delivery action failed: %w", err)
		}
	}
	s.deliveries.Add(1)
	if s.hooks.OnDeliveryFinished != nil {
		s.hooks.OnDeliveryFinished(size)
	}
	return nil
}

func (s *Service) serviceElves(ctx context.Context) (err error) {
	s.state.Store(int32(StateServicingElves))
	ctx, span := tracing.StartSpan(ctx, "dispatcher.consultation", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if s.hooks.OnConsultationStarted != nil {
		s.hooks.OnConsultationStarted()
	}
	size, err := s.elfGate.OpenNext()
	if err != nil {
		return fmt.Errorf("failed to open elf gate: %w", err)
	}
	span.WithAttributes(map[string]string{"group.size": fmt.Sprintf("%d", size)})
	if s.consult != nil {
		if err = s.consult(ctx, size); err != nil {
			return fmt.Errorf("consultation action failed: %w", err)
		}
	}
	s.consultations.Add(1)
	if s.hooks.OnConsultationFinished != nil {
		s.hooks.OnConsultationFinished(size)
	}
	return nil
}
