package catalogue

import (
	"errors"
	"fmt"

	"transit_router/pkg/geo"
)

var (
	// ErrUnknownStop is returned when a distance or route references a stop
	// that was never added.
	ErrUnknownStop = errors.New("unknown stop")

	// ErrMissingDistance is returned when a route has two consecutive stops
	// with no measured distance in either direction.
	ErrMissingDistance = errors.New("missing distance between stops")

	// ErrEmptyRoute is returned for a route without stops.
	ErrEmptyRoute = errors.New("route has no stops")
)

// RouteKind tells how a bus traverses its stop sequence.
type RouteKind uint8

const (
	// Circular routes are ridden in one direction; the sequence already
	// ends where it starts.
	Circular RouteKind = iota
	// Linear routes are ridden out and back.
	Linear
)

func (k RouteKind) String() string {
	switch k {
	case Circular:
		return "circular"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("RouteKind(%d)", uint8(k))
	}
}

// Stop is a named location.
type Stop struct {
	Name        string
	Coordinates geo.Coordinates
}

// Route is a bus line with statistics derived once, when it was added.
// Stops must be treated as read-only by callers.
type Route struct {
	Name  string
	Stops []string
	Kind  RouteKind

	StopCount       int
	UniqueStopCount int
	GeoDistance     float64 // meters, great-circle
	RoadDistance    int     // meters, measured
	Curvature       float64 // RoadDistance / GeoDistance
}

// RouteStat is the answer to a bus statistics query.
type RouteStat struct {
	Name            string
	StopCount       int
	UniqueStopCount int
	RoadDistance    int
	Curvature       float64
}

// Stat returns the query view of r.
func (r *Route) Stat() RouteStat {
	return RouteStat{
		Name:            r.Name,
		StopCount:       r.StopCount,
		UniqueStopCount: r.UniqueStopCount,
		RoadDistance:    r.RoadDistance,
		Curvature:       r.Curvature,
	}
}

// DistanceEntry is a directed measured distance addressed by stop names.
type DistanceEntry struct {
	From   string
	To     string
	Meters int
}

// NearbyStop is a stop found by a proximity search.
type NearbyStop struct {
	Name           string
	DistanceMeters float64
}
