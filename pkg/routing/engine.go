// Package routing answers minimum-time itinerary queries over a routing
// graph.
package routing

import (
	"errors"
	"math"

	"transit_router/pkg/graph"
	"transit_router/pkg/settings"
)

// ErrNoRoute is returned when no itinerary exists between the two stops.
var ErrNoRoute = errors.New("no route found")

// ItemKind tells which fields of an Item are set.
type ItemKind uint8

const (
	// Wait is a boarding wait at a stop.
	Wait ItemKind = iota
	// Ride is a ride on one bus across SpanCount consecutive stops.
	Ride
)

func (k ItemKind) String() string {
	if k == Wait {
		return "Wait"
	}
	return "Bus"
}

// Item is one step of an itinerary. StopName is set for Wait, Bus and
// SpanCount for Ride.
type Item struct {
	Kind      ItemKind
	StopName  string
	Bus       string
	SpanCount int
	Minutes   float64
}

// RouteData is a minimum-time itinerary.
type RouteData struct {
	TotalTime float64
	Items     []Item
}

// Router finds itineraries on an immutable graph. It is safe for concurrent
// use.
type Router struct {
	g        *graph.Graph
	settings settings.RoutingSettings
	states   *statePool
}

// NewRouter creates a router over g. The graph must not be modified
// afterwards.
func NewRouter(g *graph.Graph, rs settings.RoutingSettings) *Router {
	return &Router{
		g:        g,
		settings: rs,
		states:   newStatePool(g.NumVertices),
	}
}

// Graph returns the graph the router searches.
func (r *Router) Graph() *graph.Graph { return r.g }

// Settings returns the routing settings the graph was built with.
func (r *Router) Settings() settings.RoutingSettings { return r.settings }

// BuildRoute returns the fastest itinerary from one stop to another. A stop
// that no bus serves has no vertex and yields ErrNoRoute. Among itineraries
// of equal time the one found first by edge relaxation order wins.
func (r *Router) BuildRoute(from, to string) (*RouteData, error) {
	src, ok := r.g.VertexID(from)
	if !ok {
		return nil, ErrNoRoute
	}
	dst, ok := r.g.VertexID(to)
	if !ok {
		return nil, ErrNoRoute
	}
	if src == dst {
		return &RouteData{}, nil
	}

	qs := r.states.get()
	defer r.states.put(qs)

	if !r.search(qs, src, dst) {
		return nil, ErrNoRoute
	}
	return r.itinerary(qs, src, dst), nil
}

// search runs Dijkstra from src until dst is settled.
func (r *Router) search(qs *QueryState, src, dst uint32) bool {
	qs.touch(src, 0, noEdge)
	qs.PQ.Push(src, 0)

	for qs.PQ.Len() > 0 {
		item := qs.PQ.Pop()
		if item.Dist > qs.Dist[item.Node] {
			continue // stale entry
		}
		if item.Node == dst {
			return true
		}

		for _, id := range r.g.EdgesFrom(item.Node) {
			e := r.g.Edge(id)
			nd := item.Dist + e.Weight
			if nd < qs.Dist[e.To] {
				qs.touch(e.To, nd, id)
				qs.PQ.Push(e.To, nd)
			}
		}
	}
	return !math.IsInf(qs.Dist[dst], 1)
}

// itinerary walks predecessor edges back from dst and expands every edge
// into a Wait and a Ride item.
func (r *Router) itinerary(qs *QueryState, src, dst uint32) *RouteData {
	var path []uint32
	for v := dst; v != src; {
		id := qs.PredEdge[v]
		path = append(path, id)
		v = r.g.Edge(id).From
	}

	wait := r.settings.BusWaitTime
	data := &RouteData{Items: make([]Item, 0, 2*len(path))}
	for i := len(path) - 1; i >= 0; i-- {
		e := r.g.Edge(path[i])
		m := r.g.EdgeMeta(path[i])
		data.TotalTime += e.Weight
		data.Items = append(data.Items,
			Item{Kind: Wait, StopName: m.OriginStop, Minutes: wait},
			Item{Kind: Ride, Bus: m.Bus, SpanCount: m.SpanCount, Minutes: e.Weight - wait},
		)
	}
	return data
}
