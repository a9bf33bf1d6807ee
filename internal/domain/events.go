// Package domain defines events for the event-driven architecture.
// Media elements and the render coordinator publish these on the event bus,
// which routes them by type and source.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Source identifies the producer: a media element ID for media events,
	// an instance ID for render events
	Source() string

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Media lifecycle events
	EventMediaPlay    EventType = "media.play"
	EventMediaPause   EventType = "media.pause"
	EventMediaAbort   EventType = "media.abort"
	EventMediaEmptied EventType = "media.emptied"
	EventMediaEnded   EventType = "media.ended"
	EventMediaError   EventType = "media.error"
	EventMediaStalled EventType = "media.stalled"
	EventMediaSuspend EventType = "media.suspend"

	// Render events
	EventFrameRendered  EventType = "render.frame"
	EventInstanceClosed EventType = "render.instance_closed"
)

// MediaEventTypes lists every media lifecycle event.
var MediaEventTypes = []EventType{
	EventMediaPlay,
	EventMediaPause,
	EventMediaAbort,
	EventMediaEmptied,
	EventMediaEnded,
	EventMediaError,
	EventMediaStalled,
	EventMediaSuspend,
}

// AnySource subscribes to an event type regardless of its producer.
const AnySource = ""

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// MediaEvent is published by a media element when its playback state changes.
type MediaEvent struct {
	baseEvent
	Kind     EventType
	MediaID  string
	Position time.Duration
	Err      error // set for EventMediaError
}

// Type returns the event type.
func (e MediaEvent) Type() EventType {
	return e.Kind
}

// Source returns the media element ID.
func (e MediaEvent) Source() string {
	return e.MediaID
}

// Resumes reports whether the event should resume the analysis tap.
func (e MediaEvent) Resumes() bool {
	return e.Kind == EventMediaPlay
}

// NewMediaEvent creates a new MediaEvent.
func NewMediaEvent(kind EventType, mediaID string, position time.Duration) MediaEvent {
	return MediaEvent{
		baseEvent: newBaseEvent(),
		Kind:      kind,
		MediaID:   mediaID,
		Position:  position,
	}
}

// NewMediaErrorEvent creates a MediaEvent of kind EventMediaError.
func NewMediaErrorEvent(mediaID string, position time.Duration, err error) MediaEvent {
	e := NewMediaEvent(EventMediaError, mediaID, position)
	e.Err = err
	return e
}

// FrameRenderedEvent is published when the renderer acknowledges a draw or composite.
type FrameRenderedEvent struct {
	baseEvent
	ID       InstanceID
	Op       Operation
	Duration time.Duration
}

// Type returns the event type.
func (e FrameRenderedEvent) Type() EventType {
	return EventFrameRendered
}

// Source returns the instance ID.
func (e FrameRenderedEvent) Source() string {
	return string(e.ID)
}

// NewFrameRenderedEvent creates a new FrameRenderedEvent.
func NewFrameRenderedEvent(id InstanceID, op Operation, d time.Duration) FrameRenderedEvent {
	return FrameRenderedEvent{
		baseEvent: newBaseEvent(),
		ID:        id,
		Op:        op,
		Duration:  d,
	}
}

// InstanceClosedEvent is published once a delete request has been acknowledged.
type InstanceClosedEvent struct {
	baseEvent
	ID InstanceID
}

// Type returns the event type.
func (e InstanceClosedEvent) Type() EventType {
	return EventInstanceClosed
}

// Source returns the instance ID.
func (e InstanceClosedEvent) Source() string {
	return string(e.ID)
}

// NewInstanceClosedEvent creates a new InstanceClosedEvent.
func NewInstanceClosedEvent(id InstanceID) InstanceClosedEvent {
	return InstanceClosedEvent{
		baseEvent: newBaseEvent(),
		ID:        id,
	}
}
