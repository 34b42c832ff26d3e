package api

import (
	"fmt"

	"transit_router/pkg/catalogue"
)

// AddStopRecord adds a stop.
type AddStopRecord struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// AddRouteRecord adds a bus. A roundtrip bus runs its stop list once and
// must end where it starts; other buses run out and back.
type AddRouteRecord struct {
	Name        string
	StopNames   []string
	IsRoundtrip bool
}

// AddDistanceRecord adds a measured road distance.
type AddDistanceRecord struct {
	From   string
	To     string
	Meters int
}

// BaseRecords is the network description ingested by the build phase.
type BaseRecords struct {
	Stops     []AddStopRecord
	Distances []AddDistanceRecord
	Routes    []AddRouteRecord
}

// Apply loads the records into cat: all stops first, then distances, then
// routes, so that records may reference stops defined later in the input.
func (b *BaseRecords) Apply(cat *catalogue.Catalogue) error {
	for _, s := range b.Stops {
		cat.AddStop(s.Name, s.Latitude, s.Longitude)
	}
	for _, d := range b.Distances {
		if err := cat.AddDistance(d.From, d.To, d.Meters); err != nil {
			return err
		}
	}
	for _, r := range b.Routes {
		kind := catalogue.Linear
		if r.IsRoundtrip {
			kind = catalogue.Circular
		}
		if err := cat.AddRoute(r.Name, r.StopNames, kind); err != nil {
			return err
		}
	}
	return nil
}

// Merge appends other's records after b's.
func (b *BaseRecords) Merge(other BaseRecords) {
	b.Stops = append(b.Stops, other.Stops...)
	b.Distances = append(b.Distances, other.Distances...)
	b.Routes = append(b.Routes, other.Routes...)
}

func (b *BaseRecords) String() string {
	return fmt.Sprintf("%d stops, %d distances, %d routes", len(b.Stops), len(b.Distances), len(b.Routes))
}

// BusStatQuery asks for the statistics of one bus.
type BusStatQuery struct {
	BusName string
}

// StopQuery asks for the buses serving a stop.
type StopQuery struct {
	StopName string
}

// RouteQuery asks for the fastest itinerary between two stops.
type RouteQuery struct {
	From string
	To   string
}

// NearbyQuery asks for the stops within Radius meters of a position.
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	Radius    float64
}
