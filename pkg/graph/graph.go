// Package graph holds the routing graph built from bus routes. A vertex is a
// stop ridden by at least one bus; an edge is a single ride on one bus from
// a boarding stop to an alighting stop, including one boarding wait.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGraph is returned by FromEdges when the parts do not describe a
// consistent graph.
var ErrInvalidGraph = errors.New("invalid graph")

// Edge is a directed weighted edge. Weight is in minutes.
type Edge struct {
	From   uint32
	To     uint32
	Weight float64
}

// EdgeMeta describes the ride an edge stands for.
type EdgeMeta struct {
	Bus        string
	SpanCount  int
	OriginStop string
	Minutes    float64 // in-vehicle time, without the boarding wait
}

// Graph is a directed graph with edges kept in insertion order (the edge id
// is the index) and a CSR adjacency index over them.
type Graph struct {
	NumVertices uint32
	Edges       []Edge
	Meta        []EdgeMeta // len: len(Edges)

	// FirstOut[v]..FirstOut[v+1] indexes into AdjEdge for the edges leaving v.
	FirstOut []uint32 // len: NumVertices + 1
	AdjEdge  []uint32 // len: len(Edges); edge ids grouped by source, ascending

	vertexOf map[string]uint32
	stopOf   []string // len: NumVertices
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	return len(g.Edges)
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id uint32) Edge {
	return g.Edges[id]
}

// EdgeMeta returns the ride metadata of an edge.
func (g *Graph) EdgeMeta(id uint32) EdgeMeta {
	return g.Meta[id]
}

// EdgesFrom returns the ids of the edges leaving v.
func (g *Graph) EdgesFrom(v uint32) []uint32 {
	return g.AdjEdge[g.FirstOut[v]:g.FirstOut[v+1]]
}

// VertexID returns the vertex assigned to a stop. Stops no bus rides have
// no vertex.
func (g *Graph) VertexID(stop string) (uint32, bool) {
	v, ok := g.vertexOf[stop]
	return v, ok
}

// StopName returns the stop a vertex stands for.
func (g *Graph) StopName(v uint32) string {
	return g.stopOf[v]
}

// VertexStops returns the stop name of every vertex, indexed by vertex id.
func (g *Graph) VertexStops() []string {
	out := make([]string, len(g.stopOf))
	copy(out, g.stopOf)
	return out
}

// FromEdges reconstructs a graph from its persisted parts without looking at
// the routes it was built from.
func FromEdges(vertexStops []string, edges []Edge, meta []EdgeMeta) (*Graph, error) {
	if len(edges) != len(meta) {
		return nil, fmt.Errorf("%w: %d edges but %d metadata records", ErrInvalidGraph, len(edges), len(meta))
	}
	n := uint32(len(vertexStops))
	vertexOf := make(map[string]uint32, n)
	for v, stop := range vertexStops {
		if _, dup := vertexOf[stop]; dup {
			return nil, fmt.Errorf("%w: stop %q has two vertices", ErrInvalidGraph, stop)
		}
		vertexOf[stop] = uint32(v)
	}
	for i, e := range edges {
		if e.From >= n || e.To >= n {
			return nil, fmt.Errorf("%w: edge %d (%d -> %d) out of range, %d vertices", ErrInvalidGraph, i, e.From, e.To, n)
		}
		if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, fmt.Errorf("%w: edge %d has weight %v", ErrInvalidGraph, i, e.Weight)
		}
	}

	g := &Graph{
		NumVertices: n,
		Edges:       edges,
		Meta:        meta,
		vertexOf:    vertexOf,
		stopOf:      vertexStops,
	}
	g.index()
	return g, nil
}

// index builds the CSR adjacency by counting sort over edge sources. Edge ids
// stay ascending within each source group.
func (g *Graph) index() {
	n := g.NumVertices
	firstOut := make([]uint32, n+1)
	for _, e := range g.Edges {
		firstOut[e.From+1]++
	}
	// Prefix sum.
	for i := uint32(1); i <= n; i++ {
		firstOut[i] += firstOut[i-1]
	}

	adj := make([]uint32, len(g.Edges))
	pos := make([]uint32, n)
	copy(pos, firstOut[:n])
	for id, e := range g.Edges {
		adj[pos[e.From]] = uint32(id)
		pos[e.From]++
	}

	g.FirstOut = firstOut
	g.AdjEdge = adj
}
