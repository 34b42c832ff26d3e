package graph

import (
	"errors"
	"math"
	"testing"

	"transit_router/internal/testnet"
	"transit_router/pkg/catalogue"
	"transit_router/pkg/settings"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildVertexAssignment(t *testing.T) {
	g, err := Build(testnet.Catalogue(t), testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.NumVertices != 5 {
		t.Fatalf("NumVertices = %d, want 5", g.NumVertices)
	}

	// Bus 750 sorts before 828, so its stops are seen first.
	want := []string{testnet.Tolsto, testnet.Marushkino, testnet.Rasskazovka, testnet.Biryulyovo, testnet.Universam}
	for v, stop := range want {
		got, ok := g.VertexID(stop)
		if !ok || got != uint32(v) {
			t.Errorf("VertexID(%q) = %d, %v; want %d", stop, got, ok, v)
		}
		if g.StopName(uint32(v)) != stop {
			t.Errorf("StopName(%d) = %q, want %q", v, g.StopName(uint32(v)), stop)
		}
	}
}

func TestBuildEdgeOrder(t *testing.T) {
	g, err := Build(testnet.Catalogue(t), testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 750 is linear with 4 stops: 4*3 edges. 828 is circular: 3+2+1.
	if g.NumEdges() != 18 {
		t.Fatalf("NumEdges = %d, want 18", g.NumEdges())
	}

	const T, M, R = 0, 1, 2
	tests := []struct {
		id      int
		from    uint32
		to      uint32
		minutes float64
		span    int
		origin  string
	}{
		{0, T, M, 7.8, 1, testnet.Tolsto},
		{1, R, M, 19.8, 1, testnet.Rasskazovka},
		{2, T, M, 8.0, 2, testnet.Tolsto},
		{3, R, M, 20.0, 2, testnet.Rasskazovka},
		{4, T, R, 27.8, 3, testnet.Tolsto},
		{5, R, T, 26.0, 3, testnet.Rasskazovka},
		{6, M, M, 0.2, 1, testnet.Marushkino},
		{9, M, T, 6.2, 2, testnet.Marushkino},
		{10, M, R, 19.8, 1, testnet.Marushkino},
		{11, M, T, 6.0, 1, testnet.Marushkino},
	}
	for _, tt := range tests {
		e := g.Edges[tt.id]
		m := g.Meta[tt.id]
		if e.From != tt.from || e.To != tt.to {
			t.Errorf("edge %d: %d -> %d, want %d -> %d", tt.id, e.From, e.To, tt.from, tt.to)
		}
		if !almostEqual(m.Minutes, tt.minutes) {
			t.Errorf("edge %d: minutes = %v, want %v", tt.id, m.Minutes, tt.minutes)
		}
		if !almostEqual(e.Weight, tt.minutes+2) {
			t.Errorf("edge %d: weight = %v, want %v", tt.id, e.Weight, tt.minutes+2)
		}
		if m.Bus != "750" || m.SpanCount != tt.span || m.OriginStop != tt.origin {
			t.Errorf("edge %d: meta = %+v, want bus 750 span %d origin %q", tt.id, m, tt.span, tt.origin)
		}
	}

	// The circular route contributes forward edges only.
	last := g.EdgeMeta(17)
	if last.Bus != "828" || last.OriginStop != testnet.Rasskazovka || !almostEqual(last.Minutes, 15) {
		t.Errorf("edge 17 meta = %+v", last)
	}
	if e := g.Edge(17); g.StopName(e.From) != testnet.Rasskazovka || g.StopName(e.To) != testnet.Biryulyovo {
		t.Errorf("edge 17 = %s -> %s", g.StopName(e.From), g.StopName(e.To))
	}
}

func TestBuildCSRInvariants(t *testing.T) {
	g, err := Build(testnet.Catalogue(t), testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.FirstOut[0] != 0 {
		t.Errorf("FirstOut[0] = %d, want 0", g.FirstOut[0])
	}
	if int(g.FirstOut[g.NumVertices]) != g.NumEdges() {
		t.Errorf("FirstOut[N] = %d, want %d", g.FirstOut[g.NumVertices], g.NumEdges())
	}

	seen := make([]bool, g.NumEdges())
	for v := range g.NumVertices {
		out := g.EdgesFrom(v)
		for i, id := range out {
			if g.Edges[id].From != v {
				t.Errorf("edge %d listed under vertex %d but leaves %d", id, v, g.Edges[id].From)
			}
			if i > 0 && out[i-1] >= id {
				t.Errorf("vertex %d: edge ids not ascending: %v", v, out)
			}
			seen[id] = true
		}
	}
	for id, ok := range seen {
		if !ok {
			t.Errorf("edge %d missing from adjacency", id)
		}
	}
}

func TestBuildEmptyCatalogue(t *testing.T) {
	g, err := Build(catalogue.New(), testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NumVertices != 0 || g.NumEdges() != 0 {
		t.Errorf("got %d vertices, %d edges; want empty", g.NumVertices, g.NumEdges())
	}
}

func TestBuildSkipsUnservedStops(t *testing.T) {
	c := testnet.Catalogue(t)
	c.AddStop("Depot", 55.6, 37.6)

	g, err := Build(c, testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := g.VertexID("Depot"); ok {
		t.Error("stop without buses should have no vertex")
	}
}

func TestBuildSingleStopRoute(t *testing.T) {
	c := catalogue.New()
	c.AddStop("A", 55.6, 37.6)
	if err := c.AddRoute("1", []string{"A"}, catalogue.Linear); err != nil {
		t.Fatalf("AddRoute: %v", err)
	}

	g, err := Build(c, testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NumEdges() != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges())
	}
}

func TestBuildRejectsBadSettings(t *testing.T) {
	_, err := Build(testnet.Catalogue(t), settings.RoutingSettings{BusVelocity: 0, BusWaitTime: 2})
	if err == nil {
		t.Fatal("expected error for zero velocity")
	}
}

func TestFromEdges(t *testing.T) {
	orig, err := Build(testnet.Catalogue(t), testnet.Settings)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g, err := FromEdges(orig.VertexStops(), orig.Edges, orig.Meta)
	if err != nil {
		t.Fatalf("FromEdges: %v", err)
	}
	if g.NumVertices != orig.NumVertices || g.NumEdges() != orig.NumEdges() {
		t.Fatalf("got %d/%d, want %d/%d", g.NumVertices, g.NumEdges(), orig.NumVertices, orig.NumEdges())
	}
	for i := range g.FirstOut {
		if g.FirstOut[i] != orig.FirstOut[i] {
			t.Fatalf("FirstOut[%d] = %d, want %d", i, g.FirstOut[i], orig.FirstOut[i])
		}
	}
	for i := range g.AdjEdge {
		if g.AdjEdge[i] != orig.AdjEdge[i] {
			t.Fatalf("AdjEdge[%d] = %d, want %d", i, g.AdjEdge[i], orig.AdjEdge[i])
		}
	}
}

func TestFromEdgesInvalid(t *testing.T) {
	stops := []string{"A", "B"}
	tests := []struct {
		name  string
		stops []string
		edges []Edge
		meta  []EdgeMeta
	}{
		{"meta length", stops, []Edge{{0, 1, 1}}, nil},
		{"vertex out of range", stops, []Edge{{0, 2, 1}}, []EdgeMeta{{}}},
		{"negative weight", stops, []Edge{{0, 1, -1}}, []EdgeMeta{{}}},
		{"nan weight", stops, []Edge{{0, 1, math.NaN()}}, []EdgeMeta{{}}},
		{"duplicate stop", []string{"A", "A"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEdges(tt.stops, tt.edges, tt.meta)
			if !errors.Is(err, ErrInvalidGraph) {
				t.Errorf("err = %v, want ErrInvalidGraph", err)
			}
		})
	}
}

func BenchmarkBuild(b *testing.B) {
	c := testnet.Catalogue(b)
	for b.Loop() {
		if _, err := Build(c, testnet.Settings); err != nil {
			b.Fatal(err)
		}
	}
}
