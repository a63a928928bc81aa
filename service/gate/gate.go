package gate

import (
	"context"
	"fmt"
	"sync"
)

// Ticket is an actor's claim on a future batch release. Wait blocks until
// the batch the ticket belongs to is opened.
type Ticket struct {
	ch <-chan struct{}
}

// Wait blocks until the ticket's batch is opened or the context is done.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Gate admits sealed batches of waiting actors, oldest batch first.
type Gate struct {
	mu     sync.Mutex
	open   []chan struct{}
	sealed [][]chan struct{}
}

func New() *Gate {
	return &Gate{}
}

// Enroll joins the currently forming batch and returns the ticket to wait on.
func (g *Gate) Enroll() *Ticket {
	ch := make(chan struct{})
	g.mu.Lock()
	g.open = append(g.open, ch)
	g.mu.Unlock()
	return &Ticket{ch: ch}
}

// Seal freezes the forming batch as the next releasable cohort and returns
// its size. Enrollments after Seal accumulate toward the following batch.
func (g *Gate) Seal() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	size := len(g.open)
	g.sealed = append(g.sealed, g.open)
	g.open = nil
	return size
}

// Sealed returns the number of sealed batches awaiting release.
func (g *Gate) Sealed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sealed)
}

// OpenNext releases every member of the oldest sealed batch and returns the
// batch size. Calling it with no sealed batch is a protocol violation.
func (g *Gate) OpenNext() (int, error) {
	g.mu.Lock()
	if len(g.sealed) == 0 {
		g.mu.Unlock()
		return 0, fmt.Errorf("no sealed batch to open")
	}
	batch := g.sealed[0]
	g.sealed = g.sealed[1:]
	g.mu.Unlock()

	for _, ch := range batch {
		close(ch)
	}
	return len(batch), nil
}
