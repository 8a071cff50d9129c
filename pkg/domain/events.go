package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition EventType = "transition"
	EventDispatch   EventType = "dispatch"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Phone     string    `json:"phone"`
}

// TransitionEvent is emitted every time a trigger moves the dialogue.
type TransitionEvent struct {
	EventBase
	From    State   `json:"from"`
	To      State   `json:"to"`
	Trigger Trigger `json:"trigger"`
}

// DispatchEvent is emitted once per handled inbound message.
type DispatchEvent struct {
	EventBase
	From     State         `json:"from"`
	To       State         `json:"to"`
	Duration time.Duration `json:"duration"`
	Failed   bool          `json:"failed,omitempty"`
}

// LifecycleHooks defines callbacks for dialogue observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnDispatch   func(context.Context, *DispatchEvent)
}
