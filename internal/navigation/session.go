package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/geo"
)

// Session holds the navigation state of one client. Every mutation goes
// through its methods and is serialized by mu.
type Session struct {
	id        string
	createdAt time.Time

	mu             sync.Mutex
	radius         geo.Radius
	location       *Sample
	destination    *Destination
	distance       *float64
	tracker        Tracker
	lastID         uint64
	cancelLookups  context.CancelFunc
	deniedNotified bool
}

func newSession(id string, radius geo.Radius) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now(),
		radius:    radius,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		Radius:       s.radius,
		RadiusMeters: s.radius.Meters(),
		State:        s.tracker.State(),
		CreatedAt:    s.createdAt,
	}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	if s.destination != nil {
		snap.Destination = s.destination.clone()
	}
	if s.distance != nil {
		dist := *s.distance
		snap.Distance = &dist
	}
	return snap
}

// SetRadius changes the selection radius, which always clears the
// destination and resets the proximity state. It reports whether a
// destination was dropped.
func (s *Session) SetRadius(radius geo.Radius) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radius = radius
	cleared := s.destination != nil
	s.clearLocked()
	return s.snapshotLocked(), cleared
}

func (s *Session) clearLocked() {
	if s.cancelLookups != nil {
		s.cancelLookups()
		s.cancelLookups = nil
	}
	s.destination = nil
	s.distance = nil
	s.tracker.Reset()
}

// UpdateLocation records a new live location and evaluates proximity to
// the destination, if any.
func (s *Session) UpdateLocation(sample Sample) (Update, *Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.location = &sample
	s.deniedNotified = false
	if s.destination == nil {
		return Update{Transition: TransitionNone, State: s.tracker.State()}, nil
	}

	distance := geo.Haversine(sample.Point, s.destination.Point)
	s.distance = &distance
	transition := s.tracker.Observe(distance, s.destination.PlaceKnown())
	dist := distance
	return Update{
		Distance:   &dist,
		Transition: transition,
		State:      s.tracker.State(),
	}, s.destination.clone()
}

// selectDestination validates the candidate against the live location and
// makes it the active destination. ctx is canceled when the destination is
// superseded.
func (s *Session) selectDestination(parent context.Context, candidate geo.Point) (context.Context, geo.Point, Destination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location == nil {
		return nil, geo.Point{}, Destination{}, ErrLocationUnavailable
	}
	origin := s.location.Point

	dest, err := Select(candidate, origin, s.radius)
	if err != nil {
		return nil, origin, Destination{}, err
	}

	s.clearLocked()
	s.lastID++
	dest.ID = s.lastID
	s.destination = &dest

	ctx, cancel := context.WithCancel(parent)
	s.cancelLookups = cancel
	return ctx, origin, *dest.clone(), nil
}

func (s *Session) currentLocked(id uint64) bool {
	return s.destination != nil && s.destination.ID == id
}

// applyRoute stores a route for destination id. It returns false when the
// destination has since been replaced or cleared.
func (s *Session) applyRoute(id uint64, route []geo.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(id) {
		return false
	}
	s.destination.Route = route
	return true
}

func (s *Session) applyPlaceName(id uint64, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(id) {
		return false
	}
	s.destination.PlaceName = name
	s.destination.PlaceStatus = PlaceResolved
	return true
}

func (s *Session) failPlaceName(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(id) {
		return false
	}
	s.destination.PlaceStatus = PlaceFailed
	return true
}

// isCurrent reports whether id still names the active destination.
func (s *Session) isCurrent(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(id)
}

// markDenied returns true the first time the client reports it has no
// location since the last successful sample.
func (s *Session) markDenied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deniedNotified {
		return false
	}
	s.deniedNotified = true
	return true
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}
