// Package eventbus routes media lifecycle and render events between the
// components of the visual player.
package eventbus

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// route is where a subscription listens: one event type from one source.
type route struct {
	kind   domain.EventType
	source string
}

type subscription struct {
	seq     uint64
	id      domain.SubscriptionID
	handler domain.EventHandler
	routes  []route
}

// SyncEventBus delivers events on the publisher's goroutine.
//
// Subscriptions are indexed by (type, source), so a media element's events
// reach only the controllers and presenters following that element, and an
// instance's render events only that instance's presenter. Subscriptions on
// domain.AnySource see every producer of their types.
//
// Thread-safety: This implementation is thread-safe. Handlers may subscribe
// and unsubscribe while an event is being delivered; the change applies from
// the next Publish.
type SyncEventBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	routes map[route][]*subscription
	byID   map[domain.SubscriptionID]*subscription
	seq    uint64
	closed bool
}

// NewSyncEventBus creates an empty bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		routes: make(map[route][]*subscription),
		byID:   make(map[domain.SubscriptionID]*subscription),
	}
}

// SetLogger sets the logger for this event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger
}

// Publish delivers event to the subscriptions on its source and to those on
// domain.AnySource, merged in subscription order. Panicking handlers are
// logged and do not stop delivery. Nil events and a closed bus are ignored.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	kind, source := event.Type(), event.Source()

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := slices.Clone(bus.routes[route{kind, source}])
	if source != domain.AnySource {
		targets = append(targets, bus.routes[route{kind, domain.AnySource}]...)
	}
	logger := bus.logger
	bus.mu.RUnlock()

	slices.SortFunc(targets, func(a, b *subscription) int {
		return cmp.Compare(a.seq, b.seq)
	})
	for _, sub := range targets {
		deliver(logger, sub, event)
	}
}

func deliver(logger *slog.Logger, sub *subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("source", event.Source()),
				slog.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe routes events of the listed types from source to handler.
// Listing a type twice delivers it once. It panics on a nil handler, an
// empty type list or a closed bus: all are wiring errors.
func (bus *SyncEventBus) Subscribe(source string, handler domain.EventHandler, types ...domain.EventType) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}
	if len(types) == 0 {
		panic("subscription needs at least one event type")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	bus.seq++
	sub := &subscription{
		seq:     bus.seq,
		id:      domain.SubscriptionID(fmt.Sprintf("sub-%d", bus.seq)),
		handler: handler,
	}
	for _, kind := range types {
		r := route{kind, source}
		if slices.Contains(sub.routes, r) {
			continue
		}
		sub.routes = append(sub.routes, r)
		bus.routes[r] = append(bus.routes[r], sub)
	}
	bus.byID[sub.id] = sub

	if bus.logger != nil {
		bus.logger.Debug("subscribed",
			slog.String("subscription", string(sub.id)),
			slog.String("source", source),
			slog.Int("types", len(sub.routes)))
	}
	return sub.id
}

// Unsubscribe removes a subscription from all of its routes.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	sub, ok := bus.byID[id]
	if !ok {
		return
	}
	delete(bus.byID, id)

	for _, r := range sub.routes {
		// Publish works on a clone, so the route slice can be rebuilt in place.
		rest := slices.DeleteFunc(bus.routes[r], func(s *subscription) bool { return s == sub })
		if len(rest) == 0 {
			delete(bus.routes, r)
			continue
		}
		bus.routes[r] = rest
	}
}

// Close drops every subscription. Closing twice returns domain.ErrEventBusClosed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return domain.ErrEventBusClosed
	}
	bus.closed = true
	clear(bus.routes)
	clear(bus.byID)
	return nil
}

var _ ports.EventBus = (*SyncEventBus)(nil)
