package navigation

import (
	"time"

	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/go-errors/errors"
)

// ArrivalThresholdMeters is how close a location sample must be to the
// destination to count as arrived.
const ArrivalThresholdMeters = 10

var (
	ErrOutOfRange          = errors.New("selected location is outside the allowed radius")
	ErrLocationUnavailable = errors.New("current location is unavailable")
	ErrLookupFailed        = errors.New("lookup failed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNoDestination       = errors.New("no destination selected")
	ErrServiceStopped      = errors.New("navigation service stopped")
)

type ProximityState string

const (
	StateApproaching ProximityState = "approaching"
	StateArrived     ProximityState = "arrived"
)

type Transition string

const (
	TransitionNone     Transition = "none"
	TransitionArrived  Transition = "arrived"
	TransitionDeparted Transition = "departed"
)

type PlaceStatus string

const (
	PlacePending  PlaceStatus = "pending"
	PlaceResolved PlaceStatus = "resolved"
	PlaceFailed   PlaceStatus = "failed"
)

type Destination struct {
	ID          uint64      `json:"id"`
	Point       geo.Point   `json:"point"`
	PlaceName   string      `json:"place_name,omitempty"`
	PlaceStatus PlaceStatus `json:"place_status"`
	Route       []geo.Point `json:"route"`
}

// PlaceKnown reports whether the place name lookup succeeded.
func (d Destination) PlaceKnown() bool {
	return d.PlaceStatus == PlaceResolved
}

func (d Destination) clone() *Destination {
	c := d
	if d.Route != nil {
		c.Route = make([]geo.Point, len(d.Route))
		copy(c.Route, d.Route)
	}
	return &c
}

// Sample is a single position report from the client's location source.
type Sample struct {
	geo.Point
	Timestamp time.Time `json:"timestamp"`
}

type Update struct {
	Distance   *float64       `json:"distance"`
	Transition Transition     `json:"transition"`
	State      ProximityState `json:"state"`
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID           string         `json:"id"`
	Radius       geo.Radius     `json:"radius"`
	RadiusMeters float64        `json:"radius_meters"`
	Location     *Sample        `json:"location,omitempty"`
	Destination  *Destination   `json:"destination,omitempty"`
	State        ProximityState `json:"state"`
	Distance     *float64       `json:"distance,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
