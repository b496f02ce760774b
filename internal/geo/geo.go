package geo

import (
	"fmt"
	"math"

	"github.com/go-errors/errors"
	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6371000

// Point is a WGS-84 coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

func FromOrb(p orb.Point) Point {
	return Point{Latitude: p.Lat(), Longitude: p.Lon()}
}

func (p Point) String() string {
	return fmt.Sprintf("%f,%f", p.Latitude, p.Longitude)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the distance between two GPS coordinates in meters.
func Haversine(start, end Point) float64 {
	phi1 := degToRad(start.Latitude)
	phi2 := degToRad(end.Latitude)
	deltaPhi := degToRad(end.Latitude - start.Latitude)
	deltaLambda := degToRad(end.Longitude - start.Longitude)

	a := math.Pow(math.Sin(deltaPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*
		math.Pow(math.Sin(deltaLambda/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// LineString converts a path into an orb.LineString for GeoJSON output.
func LineString(path []Point) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, p := range path {
		ls = append(ls, p.Orb())
	}
	return ls
}

type Radius string

const (
	Radius500m Radius = "500m"
	Radius1km  Radius = "1km"
	Radius5km  Radius = "5km"

	DefaultRadius = Radius1km
)

var ErrInvalidRadius = errors.New("radius must be one of 500m, 1km, 5km")

func ParseRadius(s string) (Radius, error) {
	switch r := Radius(s); r {
	case Radius500m, Radius1km, Radius5km:
		return r, nil
	default:
		return "", ErrInvalidRadius
	}
}

func (r Radius) Meters() float64 {
	switch r {
	case Radius500m:
		return 500
	case Radius1km:
		return 1000
	case Radius5km:
		return 5000
	default:
		return DefaultRadius.Meters()
	}
}
