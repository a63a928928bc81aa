package muster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpole/dispatch/service/gate"
	"github.com/northpole/dispatch/service/messaging/memory"
)

func newWakeQueue() *memory.Queue[WakeEvent] {
	config := memory.DefaultConfig()
	config.Buffer = 16
	return memory.NewQueue[WakeEvent](config)
}

// Nine reindeer arrivals produce exactly one wake event and leave the
// counter at zero.
func TestReindeerGroupFormation(t *testing.T) {
	ctx := context.Background()
	wake := newWakeQueue()
	g := gate.New()
	m, err := New(KindReindeer, 9, wake, g)
	require.NoError(t, err)

	var lastCount int
	for id := 1; id <= 9; id++ {
		ticket, last, err := m.Arrive(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, ticket)
		if last {
			lastCount++
			assert.Equal(t, 9, id)
		}
	}

	assert.Equal(t, 1, lastCount)
	assert.Equal(t, 1, wake.Size())
	assert.Equal(t, 0, m.Waiting())
	assert.Equal(t, 1, m.Pending())

	msg, err := wake.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, CauseReindeerGroupReady, msg.T().Cause)
}

// Twelve elf arrivals with a group size of three form four groups with
// boundaries after arrivals 3, 6, 9 and 12.
func TestElfGroupBoundaries(t *testing.T) {
	ctx := context.Background()
	wake := newWakeQueue()
	g := gate.New()
	m, err := New(KindElf, 3, wake, g)
	require.NoError(t, err)

	var boundaries []int
	for id := 1; id <= 12; id++ {
		_, last, err := m.Arrive(ctx, id)
		require.NoError(t, err)
		if last {
			boundaries = append(boundaries, id)
			assert.Equal(t, 0, m.Waiting())
		}
	}

	assert.Equal(t, []int{3, 6, 9, 12}, boundaries)
	assert.Equal(t, 4, wake.Size())
	assert.Equal(t, 4, m.Pending())

	for i := 0; i < 4; i++ {
		msg, err := wake.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, CauseElfGroupReady, msg.T().Cause)
	}
}

func TestArriveBelowThresholdDoesNotSignal(t *testing.T) {
	ctx := context.Background()
	wake := newWakeQueue()
	m, err := New(KindElf, 3, wake, gate.New())
	require.NoError(t, err)

	_, last, err := m.Arrive(ctx, 1)
	require.NoError(t, err)
	assert.False(t, last)
	_, last, err = m.Arrive(ctx, 2)
	require.NoError(t, err)
	assert.False(t, last)

	assert.Equal(t, 0, wake.Size())
	assert.Equal(t, 2, m.Waiting())
	assert.Equal(t, 0, m.Pending())
}

func TestHooksFire(t *testing.T) {
	ctx := context.Background()
	wake := newWakeQueue()

	var mu sync.Mutex
	var arrived []int
	var formed int
	hooks := Hooks{
		OnArrived: func(actorID, waiting int) {
			mu.Lock()
			arrived = append(arrived, actorID)
			mu.Unlock()
		},
		OnGroupFormed: func() {
			mu.Lock()
			formed++
			mu.Unlock()
		},
	}
	m, err := New(KindElf, 3, wake, gate.New(), WithHooks(hooks))
	require.NoError(t, err)

	for id := 1; id <= 6; id++ {
		_, _, err := m.Arrive(ctx, id)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, arrived, 6)
	assert.Equal(t, 2, formed)
}

// The completing arrival seals the cohort before any later arrival can
// enroll, so a released batch admits exactly the counted members.
func TestCohortIsolation(t *testing.T) {
	ctx := context.Background()
	wake := newWakeQueue()
	g := gate.New()
	m, err := New(KindElf, 3, wake, g)
	require.NoError(t, err)

	var cohort []*gate.Ticket
	for id := 1; id <= 3; id++ {
		ticket, _, err := m.Arrive(ctx, id)
		require.NoError(t, err)
		cohort = append(cohort, ticket)
	}

	// A fourth elf arrives before the gate opens; it must start the next
	// group.
	lateTicket, last, err := m.Arrive(ctx, 4)
	require.NoError(t, err)
	assert.False(t, last)
	assert.Equal(t, 1, m.Waiting())

	opened, err := g.OpenNext()
	require.NoError(t, err)
	assert.Equal(t, 3, opened)

	for _, ticket := range cohort {
		assert.NoError(t, ticket.Wait(ctx))
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, lateTicket.Wait(waitCtx))
}

func TestNewValidation(t *testing.T) {
	wake := newWakeQueue()
	_, err := New(KindReindeer, 0, wake, gate.New())
	assert.Error(t, err)
	_, err = New(KindReindeer, 9, nil, gate.New())
	assert.Error(t, err)
	_, err = New(KindReindeer, 9, wake, nil)
	assert.Error(t, err)
}

func TestConcurrentArrivalsNeverSplitGroups(t *testing.T) {
	ctx := context.Background()
	config := memory.DefaultConfig()
	config.Buffer = 64
	wake := memory.NewQueue[WakeEvent](config)
	g := gate.New()
	m, err := New(KindElf, 3, wake, g)
	require.NoError(t, err)

	const actors = 30 // 10 groups of 3
	var wg sync.WaitGroup
	var mu sync.Mutex
	var lastCount int
	for id := 1; id <= actors; id++ {
		wg.Add(1)
		go func(actorID int) {
			defer wg.Done()
			_, last, err := m.Arrive(ctx, actorID)
			assert.NoError(t, err)
			if last {
				mu.Lock()
				lastCount++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 10, lastCount)
	assert.Equal(t, 10, wake.Size())
	assert.Equal(t, 10, m.Pending())
	assert.Equal(t, 0, m.Waiting())

	// Every sealed batch releases exactly the group size
	for i := 0; i < 10; i++ {
		opened, err := g.OpenNext()
		require.NoError(t, err)
		assert.Equal(t, 3, opened)
	}
}
