// Package ports define the EventBus interface for event-driven communication.
package ports

import (
	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// EventBus routes media lifecycle and render events from their producers to
// the components following them. A subscription names one source (a media
// element ID or an instance ID, see domain.Event.Source) and the event types
// it wants from that source; domain.AnySource follows every producer.
//
// Thread-safety: Implementations must be thread-safe as events are published
// from media elements and the render coordinator's dispatch goroutine while
// consumers subscribe from others.
//
// Example usage:
//
//	// The analysis controller follows the lifecycle of one media element.
//	sub := bus.Subscribe(media.ID(), controller.onMediaEvent, domain.MediaEventTypes...)
//
//	// The presenter samples render times of its own instance.
//	bus.Subscribe(string(player.ID()), presenter.onFrameRendered, domain.EventFrameRendered)
//
//	// Later: Unsubscribe
//	bus.Unsubscribe(sub)
type EventBus interface {
	// Publish delivers event to every subscription routed to its type and
	// source, synchronously and in subscription order.
	//
	// Handlers run on the publisher's goroutine: the media element's for
	// media events, the render coordinator's dispatch goroutine for render
	// events. They must not block on the publisher.
	Publish(event domain.Event)

	// Subscribe routes events of the listed types from source to handler.
	// One SubscriptionID covers all listed types.
	Subscribe(source string, handler domain.EventHandler, types ...domain.EventType) domain.SubscriptionID

	// Unsubscribe removes a subscription from every route it was on.
	// Unknown IDs are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// Close drops all subscriptions. Later publications are ignored.
	Close() error
}
