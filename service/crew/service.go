package crew

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/northpole/dispatch/service/muster"
)

// DelayFunc models an actor's away/working period. It returns once the
// period elapsed, or the context error when cancelled.
type DelayFunc func(ctx context.Context) error

// RandomDelay returns a DelayFunc sleeping a uniformly random duration in
// [min, max].
func RandomDelay(min, max time.Duration) DelayFunc {
	if max < min {
		max = min
	}
	return func(ctx context.Context) error {
		d := min
		if span := max - min; span > 0 {
			d += time.Duration(rand.Int63n(int64(span) + 1))
		}
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Config represents crew configuration
type Config struct {
	// Reindeer is the team size; every member must return before a delivery
	Reindeer int

	// Elves is the workshop population; it bounds concurrency only
	Elves int

	// AwayMin/AwayMax bound the reindeer vacation period
	AwayMin time.Duration
	AwayMax time.Duration

	// WorkMin/WorkMax bound the elf working period
	WorkMin time.Duration
	WorkMax time.Duration
}

// DefaultConfig returns the default crew configuration
func DefaultConfig() Config {
	return Config{
		Reindeer: 9,
		Elves:    10,
		AwayMin:  2 * time.Second,
		AwayMax:  5 * time.Second,
		WorkMin:  time.Second,
		WorkMax:  4 * time.Second,
	}
}

// Hooks are fire-and-forget observation callbacks; they must not block.
type Hooks struct {
	OnReindeerHarnessed func(id int)
	OnElfHelped         func(id int)
}

// Service owns the actor goroutines.
type Service struct {
	config   Config
	reindeer *muster.Muster
	elves    *muster.Muster
	hooks    Hooks

	awayDelay DelayFunc
	workDelay DelayFunc

	workerWg sync.WaitGroup
	cancelFn context.CancelFunc
	started  bool
	mu       sync.Mutex
}

// Option customises the crew service
type Option func(*Service)

// WithConfig sets the crew configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithReindeerMuster sets the reindeer arrival muster
func WithReindeerMuster(m *muster.Muster) Option {
	return func(s *Service) {
		s.reindeer = m
	}
}

// WithElfMuster sets the elf arrival muster
func WithElfMuster(m *muster.Muster) Option {
	return func(s *Service) {
		s.elves = m
	}
}

// WithHooks sets the observation hooks
func WithHooks(hooks Hooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithAwayDelay overrides the reindeer away period, typically for tests
func WithAwayDelay(delay DelayFunc) Option {
	return func(s *Service) {
		s.awayDelay = delay
	}
}

// WithWorkDelay overrides the elf working period, typically for tests
func WithWorkDelay(delay DelayFunc) Option {
	return func(s *Service) {
		s.workDelay = delay
	}
}

// New creates the crew service
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, opt := range options {
		opt(s)
	}
	if s.reindeer == nil {
		return nil, fmt.Errorf("reindeer muster is required")
	}
	if s.elves == nil {
		return nil, fmt.Errorf("elf muster is required")
	}
	if s.config.Reindeer < 1 {
		return nil, fmt.Errorf("reindeer count must be >= 1, got %d", s.config.Reindeer)
	}
	if s.config.Elves < s.elves.Threshold() {
		return nil, fmt.Errorf("elf population %d is smaller than the group size %d", s.config.Elves, s.elves.Threshold())
	}
	if s.awayDelay == nil {
		s.awayDelay = RandomDelay(s.config.AwayMin, s.config.AwayMax)
	}
	if s.workDelay == nil {
		s.workDelay = RandomDelay(s.config.WorkMin, s.config.WorkMax)
	}
	return s, nil
}

// Start launches one goroutine per actor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("crew already started")
	}
	s.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel

	for id := 1; id <= s.config.Reindeer; id++ {
		s.workerWg.Add(1)
		go s.runReindeer(workerCtx, id)
	}
	for id := 1; id <= s.config.Elves; id++ {
		s.workerWg.Add(1)
		go s.runElf(workerCtx, id)
	}
	return nil
}

// Shutdown cancels all actor loops and waits for them to park.
func (s *Service) Shutdown() {
	s.mu.Lock()
	cancel := s.cancelFn
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.workerWg.Wait()
}

func (s *Service) runReindeer(ctx context.Context, id int) {
	defer s.workerWg.Done()
	for {
		if err := s.awayDelay(ctx); err != nil {
			return
		}
		ticket, _, err := s.reindeer.Arrive(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("reindeer %d: arrival failed: %v", id, err)
			return
		}
		if err := ticket.Wait(ctx); err != nil {
			return
		}
		if s.hooks.OnReindeerHarnessed != nil {
			s.hooks.OnReindeerHarnessed(id)
		}
	}
}

func (s *Service) runElf(ctx context.Context, id int) {
	defer s.workerWg.Done()
	for {
		if err := s.workDelay(ctx); err != nil {
			return
		}
		ticket, _, err := s.elves.Arrive(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("elf %d: arrival failed: %v", id, err)
			return
		}
		if err := ticket.Wait(ctx); err != nil {
			return
		}
		if s.hooks.OnElfHelped != nil {
			s.hooks.OnElfHelped(id)
		}
	}
}
