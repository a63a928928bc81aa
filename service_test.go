package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpole/dispatch"
	"github.com/northpole/dispatch/service/crew"
	"github.com/northpole/dispatch/service/event"
)

func fastDelay() crew.DelayFunc {
	return func(ctx context.Context) error {
		select {
		case <-time.After(time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestServiceEndToEnd(t *testing.T) {
	srv, err := dispatch.New(
		dispatch.WithAwayDelay(fastDelay()),
		dispatch.WithWorkDelay(fastDelay()),
	)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[dispatch.ActivityType]int{}
	err = srv.Subscribe(func(evt *event.Event[dispatch.Activity]) {
		mu.Lock()
		seen[evt.Data.Type]++
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx := context.Background()
	rt := srv.Runtime()
	require.NoError(t, rt.Start(ctx))
	defer func() {
		assert.NoError(t, rt.Shutdown(ctx))
	}()

	// The protocol makes progress: at least one delivery and one
	// consultation under continuous arrivals.
	assert.Eventually(t, func() bool {
		stats := rt.Stats()
		return stats.Deliveries >= 1 && stats.Consultations >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// The observation layer saw the matching events.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[dispatch.ActivityDeliveryFinished] >= 1 &&
			seen[dispatch.ActivityConsultationFinished] >= 1 &&
			seen[dispatch.ActivityReindeerArrived] >= 9 &&
			seen[dispatch.ActivityElfArrived] >= 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServiceWithoutSubscriber(t *testing.T) {
	// The engine must function identically with no subscriber attached.
	srv, err := dispatch.New(
		dispatch.WithAwayDelay(fastDelay()),
		dispatch.WithWorkDelay(fastDelay()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	rt := srv.Runtime()
	require.NoError(t, rt.Start(ctx))
	defer func() {
		assert.NoError(t, rt.Shutdown(ctx))
	}()

	assert.Eventually(t, func() bool {
		stats := rt.Stats()
		return stats.Deliveries >= 2 && stats.Consultations >= 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServiceInvalidConfig(t *testing.T) {
	config := dispatch.DefaultConfig()
	config.Crew.ElfGroup = 100
	_, err := dispatch.New(dispatch.WithConfig(config))
	assert.Error(t, err)
}

func TestServiceCustomActions(t *testing.T) {
	var mu sync.Mutex
	var deliverySizes []int
	srv, err := dispatch.New(
		dispatch.WithAwayDelay(fastDelay()),
		dispatch.WithWorkDelay(fastDelay()),
		dispatch.WithDeliveryAction(func(ctx context.Context, size int) error {
			mu.Lock()
			deliverySizes = append(deliverySizes, size)
			mu.Unlock()
			return nil
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	rt := srv.Runtime()
	require.NoError(t, rt.Start(ctx))
	defer func() {
		assert.NoError(t, rt.Shutdown(ctx))
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deliverySizes) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// Every delivery admits the full team, never more, never fewer.
	mu.Lock()
	defer mu.Unlock()
	for _, size := range deliverySizes {
		assert.Equal(t, 9, size)
	}
}
