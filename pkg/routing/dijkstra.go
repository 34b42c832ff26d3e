package routing

import (
	"math"
	"sync"
)

// MinHeap is a concrete-typed min-heap for Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

const noEdge = math.MaxUint32

// QueryState holds per-query state for a one-to-one Dijkstra search.
type QueryState struct {
	Dist     []float64
	PredEdge []uint32 // edge used to reach each vertex (noEdge = none)
	Touched  []uint32 // vertices touched during this query (for fast reset)
	PQ       MinHeap
}

// NewQueryState creates a new QueryState for a graph with n vertices.
func NewQueryState(n uint32) *QueryState {
	dist := make([]float64, n)
	pred := make([]uint32, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = noEdge
	}
	return &QueryState{
		Dist:     dist,
		PredEdge: pred,
		Touched:  make([]uint32, 0, 64),
		PQ:       MinHeap{items: make([]PQItem, 0, 64)},
	}
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, v := range qs.Touched {
		qs.Dist[v] = math.Inf(1)
		qs.PredEdge[v] = noEdge
	}
	qs.Touched = qs.Touched[:0]
	qs.PQ.Reset()
}

func (qs *QueryState) touch(v uint32, dist float64, pred uint32) {
	if math.IsInf(qs.Dist[v], 1) {
		qs.Touched = append(qs.Touched, v)
	}
	qs.Dist[v] = dist
	qs.PredEdge[v] = pred
}

// statePool hands out QueryStates sized for one graph so concurrent queries
// never share search state.
type statePool struct {
	pool sync.Pool
}

func newStatePool(n uint32) *statePool {
	return &statePool{pool: sync.Pool{New: func() any { return NewQueryState(n) }}}
}

func (p *statePool) get() *QueryState { return p.pool.Get().(*QueryState) }

func (p *statePool) put(qs *QueryState) {
	qs.Reset()
	p.pool.Put(qs)
}
