package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/events"
	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/USA-RedDragon/wander-server/internal/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type RouteProvider interface {
	Route(ctx context.Context, from, to geo.Point) ([]geo.Point, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, point geo.Point) (string, error)
}

const DefaultLookupTimeout = 10 * time.Second

type Options struct {
	DefaultRadius geo.Radius
	LookupTimeout time.Duration
}

// Service owns every navigation session and runs their lookups.
type Service struct {
	sessions *xsync.MapOf[string, *Session]
	router   RouteProvider
	geocoder Geocoder
	events   *events.EventBus
	metrics  *metrics.Metrics
	options  Options

	ctx    context.Context
	cancel context.CancelFunc
	// stopMu orders lookups.Add against the Wait in Stop.
	stopMu  sync.RWMutex
	stopped bool
	lookups sync.WaitGroup
}

func NewService(router RouteProvider, geocoder Geocoder, eventBus *events.EventBus, metrics *metrics.Metrics, options Options) *Service {
	if options.DefaultRadius == "" {
		options.DefaultRadius = geo.DefaultRadius
	}
	if options.LookupTimeout <= 0 {
		options.LookupTimeout = DefaultLookupTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		sessions: xsync.NewMapOf[string, *Session](),
		router:   router,
		geocoder: geocoder,
		events:   eventBus,
		metrics:  metrics,
		options:  options,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Service) CreateSession() Snapshot {
	session := newSession(uuid.NewString(), s.options.DefaultRadius)
	s.sessions.Store(session.ID(), session)
	s.metrics.IncrementSessions()
	slog.Debug("Session created", "session", session.ID())
	return session.Snapshot()
}

func (s *Service) session(id string) (*Session, error) {
	session, ok := s.sessions.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) Snapshot(id string) (Snapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) DeleteSession(id string) error {
	session, ok := s.sessions.LoadAndDelete(id)
	if !ok {
		return ErrSessionNotFound
	}
	session.close()
	s.events.CloseSession(id)
	s.metrics.DecrementSessions()
	return nil
}

func (s *Service) SetRadius(id string, radius geo.Radius) (Snapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return Snapshot{}, err
	}
	snap, cleared := session.SetRadius(radius)
	if cleared {
		s.events.Publish(events.Event{
			Type:      events.EventTypeDestinationCleared,
			SessionID: id,
			Message:   fmt.Sprintf("Radius changed to %s", radius),
		})
	}
	return snap, nil
}

func (s *Service) UpdateLocation(id string, sample Sample) (Update, error) {
	session, err := s.session(id)
	if err != nil {
		return Update{}, err
	}
	update, dest := session.UpdateLocation(sample)
	switch update.Transition {
	case TransitionArrived:
		s.metrics.IncrementTransitions(string(update.Transition))
		s.events.Publish(events.Event{
			Type:          events.EventTypeArrived,
			SessionID:     id,
			DestinationID: dest.ID,
			PlaceName:     dest.PlaceName,
			Distance:      update.Distance,
			Message:       "You've arrived at: " + dest.PlaceName,
		})
	case TransitionDeparted:
		s.metrics.IncrementTransitions(string(update.Transition))
		s.events.Publish(events.Event{
			Type:          events.EventTypeDeparted,
			SessionID:     id,
			DestinationID: dest.ID,
			Distance:      update.Distance,
		})
	case TransitionNone:
	}
	return update, nil
}

// ReportLocationDenied records that the client cannot deliver locations.
// The notice is only sent once until a location arrives again.
func (s *Service) ReportLocationDenied(id string) error {
	session, err := s.session(id)
	if err != nil {
		return err
	}
	if session.markDenied() {
		s.events.Publish(events.Event{
			Type:      events.EventTypePermissionDenied,
			SessionID: id,
			Message:   "Location permission is required.",
		})
	}
	return nil
}

// SelectDestination validates the candidate against the session's live
// location and, if accepted, starts the route and place name lookups.
func (s *Service) SelectDestination(id string, candidate geo.Point) (Snapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.stopMu.RLock()
	defer s.stopMu.RUnlock()
	if s.stopped {
		return Snapshot{}, ErrServiceStopped
	}

	ctx, origin, dest, err := session.selectDestination(s.ctx, candidate)
	switch {
	case errors.Is(err, ErrOutOfRange):
		s.metrics.IncrementSelections("out_of_range")
		snap := session.Snapshot()
		s.events.Publish(events.Event{
			Type:      events.EventTypeOutOfRange,
			SessionID: id,
			Message:   fmt.Sprintf("Selected location is more than %s.", snap.Radius),
		})
		return snap, err
	case errors.Is(err, ErrLocationUnavailable):
		s.metrics.IncrementSelections("no_location")
		return session.Snapshot(), err
	case err != nil:
		return Snapshot{}, err
	}
	s.metrics.IncrementSelections("accepted")

	s.lookups.Add(2)
	go s.lookupRoute(ctx, session, origin, dest)
	go s.lookupPlaceName(ctx, session, dest)

	return session.Snapshot(), nil
}

func (s *Service) lookupRoute(ctx context.Context, session *Session, origin geo.Point, dest Destination) {
	defer s.lookups.Done()
	ctx, cancel := context.WithTimeout(ctx, s.options.LookupTimeout)
	defer cancel()

	start := time.Now()
	route, err := s.router.Route(ctx, origin, dest.Point)
	s.metrics.ObserveLookupDuration(string(events.LookupRoute), time.Since(start).Seconds())
	if err != nil {
		if !session.isCurrent(dest.ID) {
			return
		}
		slog.Warn("Route lookup failed", "session", session.ID(), "destination", dest.ID, "error", fmt.Errorf("%w: %w", ErrLookupFailed, err))
		s.metrics.IncrementLookupFailures(string(events.LookupRoute))
		s.events.Publish(events.Event{
			Type:          events.EventTypeLookupFailed,
			SessionID:     session.ID(),
			DestinationID: dest.ID,
			Lookup:        events.LookupRoute,
			Message:       "Failed to fetch route.",
		})
		return
	}
	if !session.applyRoute(dest.ID, route) {
		slog.Debug("Discarding stale route", "session", session.ID(), "destination", dest.ID)
		return
	}
	s.events.Publish(events.Event{
		Type:          events.EventTypeRouteReady,
		SessionID:     session.ID(),
		DestinationID: dest.ID,
	})
}

func (s *Service) lookupPlaceName(ctx context.Context, session *Session, dest Destination) {
	defer s.lookups.Done()
	ctx, cancel := context.WithTimeout(ctx, s.options.LookupTimeout)
	defer cancel()

	start := time.Now()
	name, err := s.geocoder.ReverseGeocode(ctx, dest.Point)
	s.metrics.ObserveLookupDuration(string(events.LookupPlaceName), time.Since(start).Seconds())
	if err != nil {
		if !session.failPlaceName(dest.ID) {
			return
		}
		slog.Warn("Place name lookup failed", "session", session.ID(), "destination", dest.ID, "error", fmt.Errorf("%w: %w", ErrLookupFailed, err))
		s.metrics.IncrementLookupFailures(string(events.LookupPlaceName))
		s.events.Publish(events.Event{
			Type:          events.EventTypeLookupFailed,
			SessionID:     session.ID(),
			DestinationID: dest.ID,
			Lookup:        events.LookupPlaceName,
			Message:       "Failed to fetch place name.",
		})
		return
	}
	if !session.applyPlaceName(dest.ID, name) {
		slog.Debug("Discarding stale place name", "session", session.ID(), "destination", dest.ID)
		return
	}
	s.events.Publish(events.Event{
		Type:          events.EventTypePlaceNameReady,
		SessionID:     session.ID(),
		DestinationID: dest.ID,
		PlaceName:     name,
	})
}

// Wait blocks until every in-flight lookup has finished.
func (s *Service) Wait() {
	s.lookups.Wait()
}

func (s *Service) Stop() {
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	s.cancel()
	s.lookups.Wait()
	s.sessions.Range(func(id string, _ *Session) bool {
		_ = s.DeleteSession(id)
		return true
	})
}
