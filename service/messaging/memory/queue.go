package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/northpole/dispatch/internal/idgen"
	"github.com/northpole/dispatch/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRedeliver   int
	RedeliverDelay time.Duration
	DeadLetter     bool
	Buffer         int
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRedeliver:   3,
		RedeliverDelay: 100 * time.Millisecond,
		DeadLetter:     true,
		Buffer:         100,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	deliveries int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return nil
}

// Nack indicates a failure in processing the message; the message is
// redelivered after the configured delay until MaxRedeliver is exhausted,
// then parked on the dead letter queue when enabled.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.deliveries++

	if m.deliveries <= m.queue.config.MaxRedeliver {
		go func() {
			time.Sleep(m.queue.config.RedeliverDelay)
			redelivery := &Message[T]{
				id:         m.id,
				payload:    m.payload,
				queue:      m.queue,
				deliveries: m.deliveries,
				createdAt:  time.Now(),
			}
			m.queue.messages <- redelivery
		}()
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory messaging.Queue backed by a buffered channel.
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*Message[T]
	config   Config
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.Buffer),
		config:   config,
	}
}

// Publish adds a new item to the queue, blocking while the buffer is full.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := q.newMessage(t)
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish adds a new item to the queue without ever blocking the caller.
// It reports false when the buffer is full and the message was dropped.
func (q *Queue[T]) TryPublish(ctx context.Context, t *T) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	select {
	case q.messages <- q.newMessage(t):
		return true, nil
	default:
		return false, nil
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) newMessage(t *T) *Message[T] {
	return &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: time.Now(),
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// ensure Queue implements the messaging interfaces
var _ messaging.Queue[any] = (*Queue[any])(nil)
var _ messaging.TryPublisher[any] = (*Queue[any])(nil)
