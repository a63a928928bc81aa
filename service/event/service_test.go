package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpole/dispatch/service/messaging/memory"
)

type activity struct {
	Kind string
	ID   int
}

func newMemoryService(t *testing.T) *Service {
	t.Helper()
	service, err := New("memory", WithNewMemoryQueueConfig(func(string) memory.Config {
		config := memory.DefaultConfig()
		config.Buffer = 16
		return config
	}))
	require.NoError(t, err)
	return service
}

func TestNewValidation(t *testing.T) {
	_, err := New("kafka")
	assert.Error(t, err)

	_, err = New("fs")
	assert.Error(t, err)

	service, err := New("memory")
	assert.NoError(t, err)
	assert.NotNil(t, service)
}

func TestTypedPublisherListenerRoundtrip(t *testing.T) {
	service := newMemoryService(t)

	var mu sync.Mutex
	var received []activity
	err := SetListenerOf(service, func(evt *Event[activity]) {
		mu.Lock()
		received = append(received, evt.Data)
		mu.Unlock()
	})
	require.NoError(t, err)

	publisher, err := PublisherOf[activity](service)
	require.NoError(t, err)

	ctx := context.Background()
	for id := 1; id <= 3; id++ {
		evt := NewEvent(&Context{Component: "test", EventType: "arrived", ActorID: id}, activity{Kind: "elf", ID: id})
		require.NoError(t, publisher.Publish(ctx, evt))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAnyListenerSeesTypedEvents(t *testing.T) {
	service := newMemoryService(t)

	var mu sync.Mutex
	var count int
	service.SetListener(func(evt *Event[any]) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	publisher, err := PublisherOf[activity](service)
	require.NoError(t, err)

	ctx := context.Background()
	evt := NewEvent(&Context{Component: "test", EventType: "helped"}, activity{Kind: "elf", ID: 7})
	require.NoError(t, publisher.Publish(ctx, evt))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTryPublishNeverBlocks(t *testing.T) {
	service, err := New("memory", WithNewMemoryQueueConfig(func(string) memory.Config {
		config := memory.DefaultConfig()
		config.Buffer = 1
		return config
	}))
	require.NoError(t, err)

	publisher, err := PublisherOf[activity](service)
	require.NoError(t, err)

	// No listener consumes, so the buffer fills after one event; further
	// publishes must drop instead of blocking.
	ctx := context.Background()
	ok, err := publisher.TryPublish(ctx, NewEvent(&Context{}, activity{ID: 1}))
	assert.NoError(t, err)
	assert.True(t, ok)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_, _ = publisher.TryPublish(ctx, NewEvent(&Context{}, activity{ID: i}))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("TryPublish blocked")
	}
}
