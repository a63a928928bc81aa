package event

import (
	"time"

	"github.com/northpole/dispatch/internal/clock"
)

// Context carries the origin of an event so that subscribers can filter
// without inspecting the payload.
type Context struct {
	Component string `json:"component"`
	EventType string `json:"eventType"`
	ActorKind string `json:"actorKind,omitempty"`
	ActorID   int    `json:"actorID,omitempty"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
