package events

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/puzpuzpuz/xsync/v3"
)

type EventType string

const (
	EventTypeArrived            EventType = "arrived"
	EventTypeDeparted           EventType = "departed"
	EventTypeOutOfRange         EventType = "out_of_range"
	EventTypeLookupFailed       EventType = "lookup_failed"
	EventTypePermissionDenied   EventType = "permission_denied"
	EventTypeRouteReady         EventType = "route_ready"
	EventTypePlaceNameReady     EventType = "place_name_ready"
	EventTypeDestinationCleared EventType = "destination_cleared"
)

type LookupKind string

const (
	LookupRoute     LookupKind = "route"
	LookupPlaceName LookupKind = "place_name"
)

// Event is a user-facing notice about a session.
type Event struct {
	Type          EventType  `json:"type"`
	SessionID     string     `json:"session_id"`
	DestinationID uint64     `json:"destination_id,omitempty"`
	PlaceName     string     `json:"place_name,omitempty"`
	Lookup        LookupKind `json:"lookup,omitempty"`
	Distance      *float64   `json:"distance,omitempty"`
	Message       string     `json:"message,omitempty"`
	Time          time.Time  `json:"time"`
}

const subscriberBuffer = 16

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

// EventBus fans session events out to in-process subscribers and, when
// configured, to NATS.
type EventBus struct {
	subscribers   *xsync.MapOf[string, *xsync.MapOf[uint64, *subscriber]]
	nextID        atomic.Uint64
	nc            *nats.Conn
	subjectPrefix string
}

func NewEventBus(nc *nats.Conn, subjectPrefix string) *EventBus {
	return &EventBus{
		subscribers:   xsync.NewMapOf[string, *xsync.MapOf[uint64, *subscriber]](),
		nc:            nc,
		subjectPrefix: subjectPrefix,
	}
}

// Publish never blocks. Subscribers that are not keeping up drop events.
func (eb *EventBus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	if subs, ok := eb.subscribers.Load(event.SessionID); ok {
		subs.Range(func(_ uint64, sub *subscriber) bool {
			select {
			case <-sub.done:
			case sub.ch <- event:
			default:
				slog.Warn("Dropping event for slow subscriber", "session", event.SessionID, "type", event.Type)
			}
			return true
		})
	}

	if eb.nc != nil {
		data, err := json.Marshal(event)
		if err != nil {
			slog.Warn("Error marshalling event", "error", err)
			return
		}
		if err := eb.nc.Publish(eb.Subject(event), data); err != nil {
			slog.Warn("Error publishing event to NATS", "error", err)
		}
	}
}

func (eb *EventBus) Subject(event Event) string {
	return eb.subjectPrefix + "." + event.SessionID + "." + string(event.Type)
}

type Subscription struct {
	C    <-chan Event
	Done <-chan struct{} // closed when canceled or the session ends

	cancel func()
}

func (s *Subscription) Cancel() {
	s.cancel()
}

// Subscribe starts delivering events for one session.
func (eb *EventBus) Subscribe(sessionID string) *Subscription {
	id := eb.nextID.Add(1)
	sub := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	eb.subscribers.Compute(sessionID, func(subs *xsync.MapOf[uint64, *subscriber], loaded bool) (*xsync.MapOf[uint64, *subscriber], bool) {
		if !loaded {
			subs = xsync.NewMapOf[uint64, *subscriber]()
		}
		subs.Store(id, sub)
		return subs, false
	})

	return &Subscription{
		C:    sub.ch,
		Done: sub.done,
		cancel: func() {
			eb.unsubscribe(sessionID, id)
		},
	}
}

// unsubscribe drops one subscriber and forgets the session once it has
// none left. After CloseSession the subscriber is already gone.
func (eb *EventBus) unsubscribe(sessionID string, id uint64) {
	eb.subscribers.Compute(sessionID, func(subs *xsync.MapOf[uint64, *subscriber], loaded bool) (*xsync.MapOf[uint64, *subscriber], bool) {
		if !loaded {
			return subs, true
		}
		if sub, ok := subs.LoadAndDelete(id); ok {
			close(sub.done)
		}
		return subs, subs.Size() == 0
	})
}

// CloseSession ends every subscription of a session.
func (eb *EventBus) CloseSession(sessionID string) {
	subs, ok := eb.subscribers.LoadAndDelete(sessionID)
	if !ok {
		return
	}
	subs.Range(func(id uint64, sub *subscriber) bool {
		if _, loaded := subs.LoadAndDelete(id); loaded {
			close(sub.done)
		}
		return true
	})
}

func (eb *EventBus) SubscriberCount(sessionID string) int {
	subs, ok := eb.subscribers.Load(sessionID)
	if !ok {
		return 0
	}
	return subs.Size()
}
