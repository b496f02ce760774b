package navigation

import (
	"fmt"

	"github.com/USA-RedDragon/wander-server/internal/geo"
)

// Select validates a candidate destination against the current position.
// The returned destination has no ID, no place name and no route yet.
func Select(candidate, current geo.Point, radius geo.Radius) (Destination, error) {
	distance := geo.Haversine(current, candidate)
	if distance > radius.Meters() {
		return Destination{}, fmt.Errorf("%w: %.0fm away, limit is %s", ErrOutOfRange, distance, radius)
	}
	return Destination{
		Point:       candidate,
		PlaceStatus: PlacePending,
		Route:       []geo.Point{},
	}, nil
}
