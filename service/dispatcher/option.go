package dispatcher

import (
	"github.com/northpole/dispatch/service/gate"
	"github.com/northpole/dispatch/service/messaging"
	"github.com/northpole/dispatch/service/muster"
)

type Option func(*Service)

// WithWakeQueue sets the wake queue the dispatcher sleeps on
func WithWakeQueue(queue messaging.Queue[muster.WakeEvent]) Option {
	return func(s *Service) {
		s.wake = queue
	}
}

// WithReindeer sets the reindeer muster and its release gate
func WithReindeer(m *muster.Muster, g *gate.Gate) Option {
	return func(s *Service) {
		s.reindeer = m
		s.reindeerGate = g
	}
}

// WithElves sets the elf muster and its release gate
func WithElves(m *muster.Muster, g *gate.Gate) Option {
	return func(s *Service) {
		s.elves = m
		s.elfGate = g
	}
}

// WithDeliveryAction sets the action performed when a reindeer group is
// dispatched
func WithDeliveryAction(action Action) Option {
	return func(s *Service) {
		s.deliver = action
	}
}

// WithConsultationAction sets the action performed when an elf group is
// dispatched
func WithConsultationAction(action Action) Option {
	return func(s *Service) {
		s.consult = action
	}
}

// WithHooks sets the observation hooks
func WithHooks(hooks Hooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}
