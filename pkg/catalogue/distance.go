package catalogue

import "sort"

// stopPair is a directed pair of stop arena indices.
type stopPair struct {
	from uint32
	to   uint32
}

// reverse returns the pair for the opposite direction. It is the only
// canonicalization used by the symmetric fallback.
func (p stopPair) reverse() stopPair {
	return stopPair{from: p.to, to: p.from}
}

// DistanceTable holds measured road distances in meters between stops.
// Entries are directed; a lookup falls back to the opposite direction when
// the requested one was never measured.
type DistanceTable struct {
	meters map[stopPair]int
}

// NewDistanceTable creates an empty table.
func NewDistanceTable() *DistanceTable {
	return &DistanceTable{meters: make(map[stopPair]int)}
}

// Set stores the distance from -> to, replacing any previous value.
func (t *DistanceTable) Set(from, to uint32, meters int) {
	t.meters[stopPair{from: from, to: to}] = meters
}

// Get returns the distance from -> to, or to -> from if only that one exists.
func (t *DistanceTable) Get(from, to uint32) (int, bool) {
	p := stopPair{from: from, to: to}
	if d, ok := t.meters[p]; ok {
		return d, true
	}
	d, ok := t.meters[p.reverse()]
	return d, ok
}

// Len returns the number of directed entries.
func (t *DistanceTable) Len() int {
	return len(t.meters)
}

// rawEntry is a directed entry addressed by arena indices.
type rawEntry struct {
	from, to uint32
	meters   int
}

// entries returns all directed entries ordered by (from, to).
func (t *DistanceTable) entries() []rawEntry {
	out := make([]rawEntry, 0, len(t.meters))
	for p, d := range t.meters {
		out = append(out, rawEntry{from: p.from, to: p.to, meters: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].from != out[j].from {
			return out[i].from < out[j].from
		}
		return out[i].to < out[j].to
	})
	return out
}
