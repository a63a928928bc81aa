package dispatch

import (
	"context"

	"github.com/northpole/dispatch/service/crew"
	"github.com/northpole/dispatch/service/dispatcher"
)

// Runtime controls the lifecycle of a wired engine.
type Runtime struct {
	dispatcher *dispatcher.Service
	crew       *crew.Service
}

// Start launches the dispatcher worker and then the actor crews. When the
// crews fail to start the dispatcher is stopped again, so no partial system
// is left running.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.dispatcher.Start(ctx); err != nil {
		return err
	}
	if err := r.crew.Start(ctx); err != nil {
		r.dispatcher.Shutdown()
		return err
	}
	return nil
}

// Shutdown stops the crews first so that no new arrivals are produced, then
// stops the dispatcher.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.crew.Shutdown()
	r.dispatcher.Shutdown()
	return nil
}

// Stats returns the number of serviced groups so far.
func (r *Runtime) Stats() dispatcher.Stats {
	return r.dispatcher.Stats()
}

// State returns the dispatcher's current state.
func (r *Runtime) State() dispatcher.State {
	return r.dispatcher.State()
}
