package graph

// UnionFind groups vertices into disjoint sets. Smaller sets are attached
// under larger ones and Find halves paths as it walks.
type UnionFind struct {
	parent []uint32
	size   []uint32 // meaningful for roots only
}

// NewUnionFind returns n singleton sets.
func NewUnionFind(n uint32) *UnionFind {
	uf := &UnionFind{
		parent: make([]uint32, n),
		size:   make([]uint32, n),
	}
	for v := range n {
		uf.parent[v] = v
		uf.size[v] = 1
	}
	return uf
}

// Find returns the root of the set holding v.
func (uf *UnionFind) Find(v uint32) uint32 {
	for uf.parent[v] != v {
		uf.parent[v] = uf.parent[uf.parent[v]]
		v = uf.parent[v]
	}
	return v
}

// Union joins the sets holding a and b and reports whether they were apart.
func (uf *UnionFind) Union(a, b uint32) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}

// Size returns the number of vertices in the set holding v.
func (uf *UnionFind) Size(v uint32) uint32 {
	return uf.size[uf.Find(v)]
}

// ComponentStats summarizes weak connectivity of the graph.
type ComponentStats struct {
	Count   int
	Largest uint32 // vertices in the largest component
}

// Components counts the weakly connected components of g (edges treated as
// undirected). A network that splits into several components has stop pairs
// with no itinerary at all.
func Components(g *Graph) ComponentStats {
	if g.NumVertices == 0 {
		return ComponentStats{}
	}

	uf := NewUnionFind(g.NumVertices)
	for _, e := range g.Edges {
		uf.Union(e.From, e.To)
	}

	var stats ComponentStats
	for v := range g.NumVertices {
		root := uf.Find(v)
		if root != v {
			continue
		}
		stats.Count++
		stats.Largest = max(stats.Largest, uf.Size(root))
	}
	return stats
}
