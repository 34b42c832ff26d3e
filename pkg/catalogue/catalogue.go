// Package catalogue stores the transit network: stops, measured distances
// between them and bus routes with their derived statistics.
//
// A Catalogue is filled during the build phase and is read-only afterwards;
// concurrent readers need no locking once the last Add call has returned.
package catalogue

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/tidwall/rtree"

	"transit_router/pkg/geo"
)

// Catalogue owns stops and routes. Entities live in arenas addressed by
// index; names resolve to indices through the lookup maps.
type Catalogue struct {
	stops     []Stop
	stopIndex map[string]uint32

	routes     []Route
	routeIndex map[string]uint32

	// routesThrough[i] is the sorted set of route names serving stops[i].
	routesThrough [][]string

	distances *DistanceTable
	spatial   rtree.RTreeG[uint32]
}

// New creates an empty catalogue.
func New() *Catalogue {
	return &Catalogue{
		stopIndex:  make(map[string]uint32),
		routeIndex: make(map[string]uint32),
		distances:  NewDistanceTable(),
	}
}

// AddStop inserts a stop. Adding a name twice replaces the coordinates of
// the earlier stop; statistics of routes already added are not recomputed.
func (c *Catalogue) AddStop(name string, lat, lng float64) {
	coords := geo.Coordinates{Lat: lat, Lng: lng}
	if idx, ok := c.stopIndex[name]; ok {
		old := c.stops[idx].Coordinates
		c.spatial.Delete(point(old), point(old), idx)
		c.stops[idx].Coordinates = coords
		c.spatial.Insert(point(coords), point(coords), idx)
		return
	}

	idx := uint32(len(c.stops))
	c.stops = append(c.stops, Stop{Name: name, Coordinates: coords})
	c.routesThrough = append(c.routesThrough, nil)
	c.stopIndex[name] = idx
	c.spatial.Insert(point(coords), point(coords), idx)
}

// AddDistance records the measured distance from -> to. Both stops must
// already exist.
func (c *Catalogue) AddDistance(from, to string, meters int) error {
	fromIdx, ok := c.stopIndex[from]
	if !ok {
		return fmt.Errorf("distance %q -> %q: %w: %q", from, to, ErrUnknownStop, from)
	}
	toIdx, ok := c.stopIndex[to]
	if !ok {
		return fmt.Errorf("distance %q -> %q: %w: %q", from, to, ErrUnknownStop, to)
	}
	c.distances.Set(fromIdx, toIdx, meters)
	return nil
}

// AddRoute inserts a bus route and computes its statistics. Every stop in
// the sequence must exist and every consecutive pair must have a measured
// distance in at least one direction.
//
// Adding a name twice replaces the earlier route.
func (c *Catalogue) AddRoute(name string, stops []string, kind RouteKind) error {
	if len(stops) == 0 {
		return fmt.Errorf("route %q: %w", name, ErrEmptyRoute)
	}

	seq := make([]uint32, len(stops))
	for i, s := range stops {
		idx, ok := c.stopIndex[s]
		if !ok {
			return fmt.Errorf("route %q: %w: %q", name, ErrUnknownStop, s)
		}
		seq[i] = idx
	}

	road, err := c.roadDistance(seq, kind)
	if err != nil {
		return fmt.Errorf("route %q: %w", name, err)
	}
	geoDist := c.geoDistance(seq, kind)

	r := Route{
		Name:            name,
		Stops:           slices.Clone(stops),
		Kind:            kind,
		StopCount:       stopCount(len(stops), kind),
		UniqueStopCount: uniqueCount(seq),
		GeoDistance:     geoDist,
		RoadDistance:    road,
		Curvature:       float64(road) / geoDist,
	}

	if idx, ok := c.routeIndex[name]; ok {
		c.unindexRoute(idx)
		c.routes[idx] = r
		c.indexRoute(idx, seq)
		return nil
	}

	idx := uint32(len(c.routes))
	c.routes = append(c.routes, r)
	c.routeIndex[name] = idx
	c.indexRoute(idx, seq)
	return nil
}

func (c *Catalogue) indexRoute(idx uint32, seq []uint32) {
	name := c.routes[idx].Name
	for _, s := range seq {
		set := c.routesThrough[s]
		pos, found := slices.BinarySearch(set, name)
		if !found {
			c.routesThrough[s] = slices.Insert(set, pos, name)
		}
	}
}

func (c *Catalogue) unindexRoute(idx uint32) {
	r := c.routes[idx]
	for _, s := range r.Stops {
		si := c.stopIndex[s]
		set := c.routesThrough[si]
		if pos, found := slices.BinarySearch(set, r.Name); found {
			c.routesThrough[si] = slices.Delete(set, pos, pos+1)
		}
	}
}

func stopCount(n int, kind RouteKind) int {
	if kind == Circular {
		return n
	}
	return 2*n - 1
}

func uniqueCount(seq []uint32) int {
	seen := make(map[uint32]struct{}, len(seq))
	for _, s := range seq {
		seen[s] = struct{}{}
	}
	return len(seen)
}

// geoDistance sums great-circle distances along the sequence; linear
// routes travel it twice.
func (c *Catalogue) geoDistance(seq []uint32, kind RouteKind) float64 {
	var sum float64
	for i := 1; i < len(seq); i++ {
		sum += geo.Distance(c.stops[seq[i-1]].Coordinates, c.stops[seq[i]].Coordinates)
	}
	if kind == Linear {
		return sum * 2
	}
	return sum
}

// roadDistance sums measured distances along the sequence. The back leg of
// a linear route is summed separately since distances are directed.
func (c *Catalogue) roadDistance(seq []uint32, kind RouteKind) (int, error) {
	var sum int
	for i := 1; i < len(seq); i++ {
		d, err := c.leg(seq[i-1], seq[i])
		if err != nil {
			return 0, err
		}
		sum += d
	}
	if kind == Circular {
		return sum, nil
	}
	for i := len(seq) - 1; i > 0; i-- {
		d, err := c.leg(seq[i], seq[i-1])
		if err != nil {
			return 0, err
		}
		sum += d
	}
	return sum, nil
}

func (c *Catalogue) leg(from, to uint32) (int, error) {
	d, ok := c.distances.Get(from, to)
	if !ok {
		return 0, fmt.Errorf("%w: %q -> %q", ErrMissingDistance, c.stops[from].Name, c.stops[to].Name)
	}
	return d, nil
}

// Stop returns the stop with the given name.
func (c *Catalogue) Stop(name string) (Stop, bool) {
	idx, ok := c.stopIndex[name]
	if !ok {
		return Stop{}, false
	}
	return c.stops[idx], true
}

// Route returns the route with the given name.
func (c *Catalogue) Route(name string) (Route, bool) {
	idx, ok := c.routeIndex[name]
	if !ok {
		return Route{}, false
	}
	return c.routes[idx], true
}

// RouteStat returns statistics for a bus, or false if it is unknown.
func (c *Catalogue) RouteStat(name string) (RouteStat, bool) {
	idx, ok := c.routeIndex[name]
	if !ok {
		return RouteStat{}, false
	}
	return c.routes[idx].Stat(), true
}

// RoutesThroughStop returns the sorted names of the buses serving a stop.
// It returns false for an unknown stop and an empty slice for a known stop
// that no bus serves.
func (c *Catalogue) RoutesThroughStop(name string) ([]string, bool) {
	idx, ok := c.stopIndex[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(c.routesThrough[idx]))
	copy(out, c.routesThrough[idx])
	return out, true
}

// Distance returns the measured distance between two stops, falling back to
// the opposite direction.
func (c *Catalogue) Distance(from, to string) (int, bool) {
	fromIdx, ok := c.stopIndex[from]
	if !ok {
		return 0, false
	}
	toIdx, ok := c.stopIndex[to]
	if !ok {
		return 0, false
	}
	return c.distances.Get(fromIdx, toIdx)
}

// Routes returns all routes sorted by name.
func (c *Catalogue) Routes() []Route {
	out := slices.Clone(c.routes)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stops returns all stops sorted by name.
func (c *Catalogue) Stops() []Stop {
	out := slices.Clone(c.stops)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StopNames returns all stop names sorted lexicographically.
func (c *Catalogue) StopNames() []string {
	out := make([]string, len(c.stops))
	for i, s := range c.stops {
		out[i] = s.Name
	}
	sort.Strings(out)
	return out
}

// Distances returns every directed measured distance ordered by stop names.
func (c *Catalogue) Distances() []DistanceEntry {
	raw := c.distances.entries()
	out := make([]DistanceEntry, len(raw))
	for i, e := range raw {
		out[i] = DistanceEntry{From: c.stops[e.from].Name, To: c.stops[e.to].Name, Meters: e.meters}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// NumStops returns the number of stops.
func (c *Catalogue) NumStops() int { return len(c.stops) }

// NumRoutes returns the number of routes.
func (c *Catalogue) NumRoutes() int { return len(c.routes) }

// NumDistances returns the number of directed distance entries.
func (c *Catalogue) NumDistances() int { return c.distances.Len() }

// NearbyStops returns the stops within radius meters of a position, nearest
// first; ties are ordered by name.
func (c *Catalogue) NearbyStops(lat, lng, radius float64) []NearbyStop {
	if radius < 0 || math.IsNaN(radius) {
		return nil
	}
	dLat, dLng := geo.MetersToDegrees(lat, radius)
	lo := [2]float64{lng - dLng, lat - dLat}
	hi := [2]float64{lng + dLng, lat + dLat}

	var out []NearbyStop
	c.spatial.Search(lo, hi, func(_, _ [2]float64, idx uint32) bool {
		s := c.stops[idx]
		d := geo.Haversine(lat, lng, s.Coordinates.Lat, s.Coordinates.Lng)
		if d <= radius {
			out = append(out, NearbyStop{Name: s.Name, DistanceMeters: d})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func point(c geo.Coordinates) [2]float64 {
	return [2]float64{c.Lng, c.Lat}
}
