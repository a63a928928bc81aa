package event

import (
	"context"

	"github.com/northpole/dispatch/internal/clock"
	"github.com/northpole/dispatch/service/messaging"
)

type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	anyQueue messaging.Queue[Event[any]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

// Publish delivers the event, blocking when the underlying queue is full.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = clock.Now()
	if p.anyQueue != nil {
		_ = p.publishAny(ctx, event, false)
	}
	return p.queue.Publish(ctx, event)
}

// TryPublish delivers the event without ever blocking the caller; the event
// is dropped when the queue buffer is full. Returns whether it was enqueued.
func (p *Publisher[T]) TryPublish(ctx context.Context, event *Event[T]) (bool, error) {
	event.CreatedAt = clock.Now()
	if p.anyQueue != nil {
		_ = p.publishAny(ctx, event, true)
	}
	if tp, ok := p.queue.(messaging.TryPublisher[Event[T]]); ok {
		return tp.TryPublish(ctx, event)
	}
	// A vendor without non-blocking support drops rather than stalls the
	// protocol hot path.
	return false, nil
}

func (p *Publisher[T]) publishAny(ctx context.Context, event *Event[T], nonBlocking bool) error {
	anyEvent := &Event[any]{
		Context:   event.Context,
		CreatedAt: event.CreatedAt,
		Metadata:  event.Metadata,
		Data:      event.Data,
	}
	if nonBlocking {
		if tp, ok := p.anyQueue.(messaging.TryPublisher[Event[any]]); ok {
			_, err := tp.TryPublish(ctx, anyEvent)
			return err
		}
		return nil
	}
	return p.anyQueue.Publish(ctx, anyEvent)
}

func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
