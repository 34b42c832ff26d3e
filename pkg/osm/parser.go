// Package osm imports bus routes from OpenStreetMap public transport data
// (route=bus relations and their stop members) as network records.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"transit_router/pkg/api"
	"transit_router/pkg/geo"
)

// Format is the encoding of the input file.
type Format uint8

const (
	FormatPBF Format = iota
	FormatXML
)

// routeTypes lists route tag values imported as buses.
var routeTypes = map[string]bool{
	"bus":        true,
	"trolleybus": true,
	"share_taxi": true,
}

// isBusRoute returns true if the relation describes a bus line.
func isBusRoute(tags osm.Tags) bool {
	if tags.Find("type") != "route" {
		return false
	}
	if !routeTypes[tags.Find("route")] {
		return false
	}
	// Disused or planned lines carry no service.
	if tags.Find("disused") == "yes" || tags.Find("proposed") != "" {
		return false
	}
	return true
}

// isStopRole returns true for member roles that mark a place the bus stops.
func isStopRole(role string) bool {
	switch role {
	case "stop", "stop_entry_only", "stop_exit_only", "platform", "platform_entry_only", "platform_exit_only":
		return true
	}
	return false
}

// routeInfo holds relation data collected during Pass 1.
type routeInfo struct {
	Name      string
	StopNodes []osm.NodeID
	Roundtrip bool
}

// stopInfo holds node data collected during Pass 2.
type stopInfo struct {
	Name     string
	Lat, Lon float64
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only stops inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the importer.
type ParseOptions struct {
	Format Format
	BBox   BBox // if non-zero, drop stops outside the box

	// DetourFactor scales great-circle distances into road distances.
	// Zero means 1.
	DetourFactor float64
}

// Parse reads OSM data and returns the stops, distances and routes of every
// bus line found. The reader is consumed twice (seeks back to start for the
// second pass), so it must implement io.ReadSeeker.
//
// Stops are keyed by their name tag, so the two platforms of a stop on
// opposite sides of a street become one stop. Distances between consecutive
// stops are estimated from coordinates; OSM carries no measured values.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*api.BaseRecords, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	detour := opt.DetourFactor
	if detour <= 0 {
		detour = 1
	}

	// Pass 1: Scan relations to collect bus lines and their stop nodes.
	referencedNodes := make(map[osm.NodeID]struct{})
	var routes []routeInfo
	usedNames := make(map[string]bool)

	scanner := newScanner(ctx, rs, opt.Format, passRelations)
	for scanner.Scan() {
		r, ok := scanner.Object().(*osm.Relation)
		if !ok || !isBusRoute(r.Tags) {
			continue
		}

		var stops []osm.NodeID
		for _, m := range r.Members {
			if m.Type != osm.TypeNode || !isStopRole(m.Role) {
				continue
			}
			id := osm.NodeID(m.Ref)
			// Stop and platform of the same halt often follow each other.
			if len(stops) > 0 && stops[len(stops)-1] == id {
				continue
			}
			stops = append(stops, id)
			referencedNodes[id] = struct{}{}
		}
		if len(stops) < 2 {
			continue
		}

		name := routeName(r)
		if usedNames[name] {
			name = fmt.Sprintf("%s/%d", name, r.ID)
		}
		usedNames[name] = true

		routes = append(routes, routeInfo{
			Name:      name,
			StopNodes: stops,
			Roundtrip: r.Tags.Find("roundtrip") == "yes" || stops[0] == stops[len(stops)-1],
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (relations): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d bus routes, %d referenced stop nodes", len(routes), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodes := make(map[osm.NodeID]stopInfo, len(referencedNodes))

	scanner = newScanner(ctx, rs, opt.Format, passNodes)
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodes[n.ID] = stopInfo{Name: stopName(n), Lat: n.Lat, Lon: n.Lon}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d stop coordinates collected", len(nodes))

	return buildRecords(routes, nodes, opt.BBox, detour), nil
}

// buildRecords turns collected routes into records. Stops that are missing
// or outside the bbox are dropped from their route.
func buildRecords(routes []routeInfo, nodes map[osm.NodeID]stopInfo, bbox BBox, detour float64) *api.BaseRecords {
	useBBox := !bbox.IsZero()
	out := &api.BaseRecords{}

	stopSeen := make(map[string]stopInfo)
	distSeen := make(map[[2]string]bool)
	var skippedStops, droppedRoutes int

	addDistance := func(from, to stopInfo) {
		key := [2]string{from.Name, to.Name}
		if distSeen[key] {
			return
		}
		distSeen[key] = true
		d := geo.Haversine(from.Lat, from.Lon, to.Lat, to.Lon) * detour
		out.Distances = append(out.Distances, api.AddDistanceRecord{
			From:   from.Name,
			To:     to.Name,
			Meters: int(math.Round(d)),
		})
	}

	for _, r := range routes {
		var seq []stopInfo
		for _, id := range r.StopNodes {
			n, ok := nodes[id]
			if !ok || (useBBox && !bbox.Contains(n.Lat, n.Lon)) {
				skippedStops++
				continue
			}
			// A stop name keeps the coordinates it was first seen with.
			if first, seen := stopSeen[n.Name]; seen {
				n = first
			} else {
				stopSeen[n.Name] = n
				out.Stops = append(out.Stops, api.AddStopRecord{Name: n.Name, Latitude: n.Lat, Longitude: n.Lon})
			}
			if len(seq) > 0 && seq[len(seq)-1].Name == n.Name {
				continue
			}
			seq = append(seq, n)
		}

		if r.Roundtrip && len(seq) > 1 && seq[0].Name != seq[len(seq)-1].Name {
			seq = append(seq, seq[0])
		}
		if len(seq) < 2 {
			droppedRoutes++
			continue
		}

		names := make([]string, len(seq))
		for i, s := range seq {
			names[i] = s.Name
			if i > 0 {
				addDistance(seq[i-1], s)
				if !r.Roundtrip {
					addDistance(s, seq[i-1])
				}
			}
		}
		out.Routes = append(out.Routes, api.AddRouteRecord{Name: r.Name, StopNames: names, IsRoundtrip: r.Roundtrip})
	}

	if skippedStops > 0 {
		log.Printf("Warning: skipped %d route stops (missing node or outside bounding box)", skippedStops)
	}
	if droppedRoutes > 0 {
		log.Printf("Warning: dropped %d routes with fewer than 2 stops", droppedRoutes)
	}
	log.Printf("Built %s", out)
	return out
}

func routeName(r *osm.Relation) string {
	for _, key := range []string{"ref", "name"} {
		if v := r.Tags.Find(key); v != "" {
			return v
		}
	}
	return fmt.Sprintf("relation/%d", r.ID)
}

func stopName(n *osm.Node) string {
	if v := n.Tags.Find("name"); v != "" {
		return v
	}
	return fmt.Sprintf("node/%d", n.ID)
}

type pass uint8

const (
	passRelations pass = iota
	passNodes
)

// newScanner opens a scanner over rs. PBF scanners skip the object types the
// pass does not read; XML scanners decode everything.
func newScanner(ctx context.Context, rs io.Reader, format Format, p pass) osm.Scanner {
	if format == FormatXML {
		return osmxml.New(ctx, rs)
	}
	s := osmpbf.New(ctx, rs, 1)
	s.SkipWays = true
	switch p {
	case passRelations:
		s.SkipNodes = true
	case passNodes:
		s.SkipRelations = true
	}
	return s
}
