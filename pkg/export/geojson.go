// Package export writes the network as GeoJSON for inspection in map tools.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"transit_router/pkg/catalogue"
	"transit_router/pkg/graph"
)

// Options selects what goes into the feature collection.
type Options struct {
	// Edges adds one LineString per routing graph edge.
	Edges bool
}

// Network returns stops as Points and routes as LineStrings. Linear routes
// are drawn once, in their outbound direction.
func Network(cat *catalogue.Catalogue, g *graph.Graph, opts Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, s := range cat.Stops() {
		f := geojson.NewFeature(point(s))
		f.Properties["kind"] = "stop"
		f.Properties["name"] = s.Name
		buses, _ := cat.RoutesThroughStop(s.Name)
		f.Properties["buses"] = buses
		fc.Append(f)
	}

	for _, r := range cat.Routes() {
		line := make(orb.LineString, 0, len(r.Stops))
		for _, name := range r.Stops {
			s, _ := cat.Stop(name)
			line = append(line, point(s))
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "route"
		f.Properties["name"] = r.Name
		f.Properties["route_kind"] = r.Kind.String()
		f.Properties["stop_count"] = r.StopCount
		f.Properties["unique_stop_count"] = r.UniqueStopCount
		f.Properties["route_length"] = r.RoadDistance
		if !math.IsNaN(r.Curvature) && !math.IsInf(r.Curvature, 0) {
			f.Properties["curvature"] = r.Curvature
		}
		fc.Append(f)
	}

	if opts.Edges && g != nil {
		for id, e := range g.Edges {
			from, _ := cat.Stop(g.StopName(e.From))
			to, _ := cat.Stop(g.StopName(e.To))
			m := g.EdgeMeta(uint32(id))
			f := geojson.NewFeature(orb.LineString{point(from), point(to)})
			f.Properties["kind"] = "edge"
			f.Properties["edge_id"] = id
			f.Properties["bus"] = m.Bus
			f.Properties["span_count"] = m.SpanCount
			f.Properties["weight"] = e.Weight
			fc.Append(f)
		}
	}
	return fc
}

// Write encodes fc to w.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}

func point(s catalogue.Stop) orb.Point {
	return orb.Point{s.Coordinates.Lng, s.Coordinates.Lat}
}
