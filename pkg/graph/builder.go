package graph

import (
	"fmt"

	"transit_router/pkg/catalogue"
	"transit_router/pkg/settings"
)

// Build creates the routing graph for every bus in the catalogue.
//
// For each boarding index i and alighting index j > i of a route, one edge
// stop[i] -> stop[j] is added with weight travel(i, j) + wait. The travel
// time grows incrementally with j, so a route of L stops costs O(L^2).
// Linear routes also get the mirrored edges walking the sequence backwards.
func Build(cat *catalogue.Catalogue, rs settings.RoutingSettings) (*Graph, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	vertexOf := make(map[string]uint32)
	var stopOf []string

	addVertex := func(stop string) uint32 {
		if v, ok := vertexOf[stop]; ok {
			return v
		}
		v := uint32(len(stopOf))
		vertexOf[stop] = v
		stopOf = append(stopOf, stop)
		return v
	}

	var edges []Edge
	var meta []EdgeMeta

	// addEdge extends the running travel time by the hop prev -> to and
	// records the ride from -> to.
	addEdge := func(r *catalogue.Route, travel *float64, prev, from, to int) error {
		d, ok := cat.Distance(r.Stops[prev], r.Stops[to])
		if !ok {
			return fmt.Errorf("route %q: %w: %q -> %q", r.Name, catalogue.ErrMissingDistance, r.Stops[prev], r.Stops[to])
		}
		*travel += float64(d) / rs.BusVelocity

		span := to - from
		if span < 0 {
			span = -span
		}
		edges = append(edges, Edge{
			From:   addVertex(r.Stops[from]),
			To:     addVertex(r.Stops[to]),
			Weight: *travel + rs.BusWaitTime,
		})
		meta = append(meta, EdgeMeta{
			Bus:        r.Name,
			SpanCount:  span,
			OriginStop: r.Stops[from],
			Minutes:    *travel,
		})
		return nil
	}

	routes := cat.Routes()
	for ri := range routes {
		r := &routes[ri]
		n := len(r.Stops)
		for iFwd, iBwd := 0, n-1; iFwd < n; iFwd, iBwd = iFwd+1, iBwd-1 {
			var fwd, bwd float64
			for jFwd, jBwd := iFwd+1, iBwd-1; jFwd < n; jFwd, jBwd = jFwd+1, jBwd-1 {
				if err := addEdge(r, &fwd, jFwd-1, iFwd, jFwd); err != nil {
					return nil, err
				}
				if r.Kind == catalogue.Linear {
					if err := addEdge(r, &bwd, jBwd+1, iBwd, jBwd); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	g := &Graph{
		NumVertices: uint32(len(stopOf)),
		Edges:       edges,
		Meta:        meta,
		vertexOf:    vertexOf,
		stopOf:      stopOf,
	}
	g.index()
	return g, nil
}
