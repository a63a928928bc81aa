package dispatch

import (
	"context"
	"fmt"

	"github.com/northpole/dispatch/service/crew"
	"github.com/northpole/dispatch/service/dispatcher"
	"github.com/northpole/dispatch/service/event"
	"github.com/northpole/dispatch/service/gate"
	"github.com/northpole/dispatch/service/messaging/fs"
	"github.com/northpole/dispatch/service/messaging/memory"
	"github.com/northpole/dispatch/service/muster"
)

// Service represents the dispatch engine façade: it wires the wake queue,
// the per-kind musters and gates, the dispatcher and the actor crews.
type Service struct {
	config       *Config
	runtime      *Runtime
	eventService *event.Service
	activities   *event.Publisher[Activity]

	wake         *memory.Queue[muster.WakeEvent]
	reindeerGate *gate.Gate
	elfGate      *gate.Gate
	reindeer     *muster.Muster
	elves        *muster.Muster

	deliverAction dispatcher.Action
	consultAction dispatcher.Action
	awayDelay     crew.DelayFunc
	workDelay     crew.DelayFunc
}

// New creates a fully wired engine. No goroutine is launched until
// Runtime.Start, so a construction error never leaves a partial system
// running.
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig(), runtime: &Runtime{}}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if err := s.ensureEventService(); err != nil {
		return err
	}
	activities, err := event.PublisherOf[Activity](s.eventService)
	if err != nil {
		return fmt.Errorf("failed to create activity publisher: %w", err)
	}
	s.activities = activities

	wakeConfig := memory.DefaultConfig()
	wakeConfig.Buffer = s.config.wakeBuffer()
	s.wake = memory.NewQueue[muster.WakeEvent](wakeConfig)

	s.reindeerGate = gate.New()
	s.elfGate = gate.New()

	s.reindeer, err = muster.New(muster.KindReindeer, s.config.Crew.Reindeer, s.wake, s.reindeerGate,
		muster.WithHooks(muster.Hooks{
			OnArrived: func(actorID, waiting int) {
				s.emit(Activity{Type: ActivityReindeerArrived, ActorID: actorID, Waiting: waiting}, "muster")
			},
			OnGroupFormed: func() {
				s.emit(Activity{Type: ActivityReindeerGroupFormed}, "muster")
			},
		}))
	if err != nil {
		return err
	}
	s.elves, err = muster.New(muster.KindElf, s.config.Crew.ElfGroup, s.wake, s.elfGate,
		muster.WithHooks(muster.Hooks{
			OnArrived: func(actorID, waiting int) {
				s.emit(Activity{Type: ActivityElfArrived, ActorID: actorID, Waiting: waiting}, "muster")
			},
			OnGroupFormed: func() {
				s.emit(Activity{Type: ActivityElfGroupFormed}, "muster")
			},
		}))
	if err != nil {
		return err
	}

	s.runtime.dispatcher, err = dispatcher.New(
		dispatcher.WithWakeQueue(s.wake),
		dispatcher.WithReindeer(s.reindeer, s.reindeerGate),
		dispatcher.WithElves(s.elves, s.elfGate),
		dispatcher.WithDeliveryAction(s.deliverAction),
		dispatcher.WithConsultationAction(s.consultAction),
		dispatcher.WithHooks(dispatcher.Hooks{
			OnDeliveryStarted: func() {
				s.emit(Activity{Type: ActivityDeliveryStarted}, "dispatcher")
			},
			OnDeliveryFinished: func(count int) {
				s.emit(Activity{Type: ActivityDeliveryFinished, Count: count}, "dispatcher")
			},
			OnConsultationStarted: func() {
				s.emit(Activity{Type: ActivityConsultationStarted}, "dispatcher")
			},
			OnConsultationFinished: func(count int) {
				s.emit(Activity{Type: ActivityConsultationFinished, Count: count}, "dispatcher")
			},
		}))
	if err != nil {
		return err
	}

	crewOptions := []crew.Option{
		crew.WithConfig(crew.Config{
			Reindeer: s.config.Crew.Reindeer,
			Elves:    s.config.Crew.Elves,
			AwayMin:  s.config.Crew.AwayMin,
			AwayMax:  s.config.Crew.AwayMax,
			WorkMin:  s.config.Crew.WorkMin,
			WorkMax:  s.config.Crew.WorkMax,
		}),
		crew.WithReindeerMuster(s.reindeer),
		crew.WithElfMuster(s.elves),
		crew.WithHooks(crew.Hooks{
			OnReindeerHarnessed: func(id int) {
				s.emit(Activity{Type: ActivityReindeerHarnessed, ActorID: id}, "crew")
			},
			OnElfHelped: func(id int) {
				s.emit(Activity{Type: ActivityElfHelped, ActorID: id}, "crew")
			},
		}),
	}
	if s.awayDelay != nil {
		crewOptions = append(crewOptions, crew.WithAwayDelay(s.awayDelay))
	}
	if s.workDelay != nil {
		crewOptions = append(crewOptions, crew.WithWorkDelay(s.workDelay))
	}
	s.runtime.crew, err = crew.New(crewOptions...)
	if err != nil {
		return err
	}
	return nil
}

func (s *Service) ensureEventService() error {
	if s.eventService != nil {
		return nil
	}
	var err error
	switch s.config.Events.Vendor {
	case "fs":
		s.eventService, err = event.New("fs", event.WithNewFsQueueConfig(func(name string) fs.Config {
			config := fs.DefaultConfig()
			config.BaseURL = s.config.Events.JournalURL + "/" + name
			return config
		}))
	default:
		s.eventService, err = event.New("memory", event.WithNewMemoryQueueConfig(func(string) memory.Config {
			config := memory.DefaultConfig()
			if s.config.Events.Buffer > 0 {
				config.Buffer = s.config.Events.Buffer
			}
			return config
		}))
	}
	if err != nil {
		return fmt.Errorf("failed to create event service: %w", err)
	}
	return nil
}

// emit publishes an activity event best-effort; a full event queue drops the
// event rather than delaying the protocol.
func (s *Service) emit(activity Activity, component string) {
	evt := event.NewEvent(&event.Context{
		Component: component,
		EventType: string(activity.Type),
		ActorID:   activity.ActorID,
	}, activity)
	_, _ = s.activities.TryPublish(context.Background(), evt)
}

// Runtime returns the lifecycle handle
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Events returns the underlying event service
func (s *Service) Events() *event.Service {
	return s.eventService
}

// Subscribe registers a handler for activity events.
func (s *Service) Subscribe(handler func(*event.Event[Activity])) error {
	return event.SetListenerOf(s.eventService, handler)
}
