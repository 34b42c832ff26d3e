package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"transit_router/pkg/catalogue"
	"transit_router/pkg/graph"
	"transit_router/pkg/settings"
)

// Payload field numbers. Stops are identified by their rank in the sorted
// list of stop names.
const (
	fieldStops     protowire.Number = 1
	fieldRoutes    protowire.Number = 2
	fieldDistances protowire.Number = 3
	fieldGraph     protowire.Number = 4
	fieldRouting   protowire.Number = 5
	fieldRender    protowire.Number = 6
	fieldBuild     protowire.Number = 7
)

func marshal(s *Snapshot) []byte {
	stops := s.Catalogue.Stops()
	ids := make(map[string]uint32, len(stops))
	for i, st := range stops {
		ids[st.Name] = uint32(i)
	}

	var b []byte
	for _, st := range stops {
		var m []byte
		m = appendString(m, 1, st.Name)
		m = appendDouble(m, 2, st.Coordinates.Lat)
		m = appendDouble(m, 3, st.Coordinates.Lng)
		b = appendBytes(b, fieldStops, m)
	}

	for _, r := range s.Catalogue.Routes() {
		seq := make([]uint32, len(r.Stops))
		for i, name := range r.Stops {
			seq[i] = ids[name]
		}
		var m []byte
		m = appendString(m, 1, r.Name)
		m = appendBool(m, 2, r.Kind == catalogue.Circular)
		m = appendPacked(m, 3, seq)
		b = appendBytes(b, fieldRoutes, m)
	}

	for _, d := range s.Catalogue.Distances() {
		var m []byte
		m = appendVarint(m, 1, uint64(ids[d.From]))
		m = appendVarint(m, 2, uint64(ids[d.To]))
		m = appendSint(m, 3, int64(d.Meters))
		b = appendBytes(b, fieldDistances, m)
	}

	b = appendBytes(b, fieldGraph, marshalGraph(s.Graph, ids))
	b = appendBytes(b, fieldRouting, marshalRouting(s.Routing))
	b = appendBytes(b, fieldRender, marshalRender(s.Render))

	var m []byte
	m = appendBytes(m, 1, s.BuildID[:])
	m = appendSint(m, 2, s.CreatedAt.UnixNano())
	b = appendBytes(b, fieldBuild, m)
	return b
}

func marshalGraph(g *graph.Graph, ids map[string]uint32) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(g.NumVertices))
	for _, e := range g.Edges {
		var m []byte
		m = appendVarint(m, 1, uint64(e.From))
		m = appendVarint(m, 2, uint64(e.To))
		m = appendDouble(m, 3, e.Weight)
		b = appendBytes(b, 2, m)
	}
	for _, em := range g.Meta {
		var m []byte
		m = appendDouble(m, 1, em.Minutes)
		m = appendString(m, 2, em.Bus)
		m = appendVarint(m, 3, uint64(em.SpanCount))
		m = appendVarint(m, 4, uint64(ids[em.OriginStop]))
		b = appendBytes(b, 3, m)
	}
	vertexStops := g.VertexStops()
	seq := make([]uint32, len(vertexStops))
	for v, name := range vertexStops {
		seq[v] = ids[name]
	}
	return appendPacked(b, 4, seq)
}

func marshalRouting(rs settings.RoutingSettings) []byte {
	var b []byte
	b = appendDouble(b, 1, rs.BusVelocity)
	return appendDouble(b, 2, rs.BusWaitTime)
}

func marshalPoint(p settings.Point) []byte {
	var b []byte
	b = appendDouble(b, 1, p.X)
	return appendDouble(b, 2, p.Y)
}

func marshalColor(c settings.Color) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(c.Kind))
	b = appendString(b, 2, c.Name)
	b = appendVarint(b, 3, uint64(c.Red))
	b = appendVarint(b, 4, uint64(c.Green))
	b = appendVarint(b, 5, uint64(c.Blue))
	return appendDouble(b, 6, c.Opacity)
}

func marshalRender(rs settings.RenderSettings) []byte {
	var b []byte
	b = appendDouble(b, 1, rs.Width)
	b = appendDouble(b, 2, rs.Height)
	b = appendDouble(b, 3, rs.Padding)
	b = appendDouble(b, 4, rs.LineWidth)
	b = appendDouble(b, 5, rs.StopRadius)
	b = appendSint(b, 6, int64(rs.BusLabelFontSize))
	b = appendBytes(b, 7, marshalPoint(rs.BusLabelOffset))
	b = appendSint(b, 8, int64(rs.StopLabelFontSize))
	b = appendBytes(b, 9, marshalPoint(rs.StopLabelOffset))
	b = appendBytes(b, 10, marshalColor(rs.UnderlayerColor))
	b = appendDouble(b, 11, rs.UnderlayerWidth)
	for _, c := range rs.ColorPalette {
		b = appendBytes(b, 12, marshalColor(c))
	}
	return b
}

type rawStop struct {
	name     string
	lat, lng float64
}

type rawRoute struct {
	name     string
	circular bool
	stops    []uint32
}

type rawDistance struct {
	from, to uint32
	meters   int64
}

type rawMeta struct {
	minutes float64
	bus     string
	span    uint32
	origin  uint32
}

type rawGraph struct {
	numVertices uint32
	edges       []graph.Edge
	meta        []rawMeta
	vertexStops []uint32
}

type rawSnapshot struct {
	stops     []rawStop
	routes    []rawRoute
	distances []rawDistance
	graph     rawGraph
	routing   settings.RoutingSettings
	render    settings.RenderSettings
	buildID   uuid.UUID
	created   int64
}

func unmarshal(b []byte) (*Snapshot, error) {
	var raw rawSnapshot
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldStops:
			var s rawStop
			n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeString(typ, b, &s.name)
				case 2:
					return consumeDouble(typ, b, &s.lat)
				case 3:
					return consumeDouble(typ, b, &s.lng)
				}
				return 0, nil
			})
			raw.stops = append(raw.stops, s)
			return n, err
		case fieldRoutes:
			var r rawRoute
			n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeString(typ, b, &r.name)
				case 2:
					return consumeBool(typ, b, &r.circular)
				case 3:
					return consumePacked(typ, b, &r.stops)
				}
				return 0, nil
			})
			raw.routes = append(raw.routes, r)
			return n, err
		case fieldDistances:
			var d rawDistance
			n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeUint32(typ, b, &d.from)
				case 2:
					return consumeUint32(typ, b, &d.to)
				case 3:
					return consumeSint(typ, b, &d.meters)
				}
				return 0, nil
			})
			raw.distances = append(raw.distances, d)
			return n, err
		case fieldGraph:
			return consumeMessage(typ, b, raw.graph.field)
		case fieldRouting:
			return consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeDouble(typ, b, &raw.routing.BusVelocity)
				case 2:
					return consumeDouble(typ, b, &raw.routing.BusWaitTime)
				}
				return 0, nil
			})
		case fieldRender:
			return consumeMessage(typ, b, renderFields(&raw.render))
		case fieldBuild:
			return consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					v, n, err := consumeBytes(typ, b)
					if err != nil {
						return 0, err
					}
					id, err := uuid.FromBytes(v)
					if err != nil {
						return 0, err
					}
					raw.buildID = id
					return n, nil
				case 2:
					return consumeSint(typ, b, &raw.created)
				}
				return 0, nil
			})
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return raw.restore()
}

func (g *rawGraph) field(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeUint32(typ, b, &g.numVertices)
	case 2:
		var e graph.Edge
		n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeUint32(typ, b, &e.From)
			case 2:
				return consumeUint32(typ, b, &e.To)
			case 3:
				return consumeDouble(typ, b, &e.Weight)
			}
			return 0, nil
		})
		g.edges = append(g.edges, e)
		return n, err
	case 3:
		var m rawMeta
		n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeDouble(typ, b, &m.minutes)
			case 2:
				return consumeString(typ, b, &m.bus)
			case 3:
				return consumeUint32(typ, b, &m.span)
			case 4:
				return consumeUint32(typ, b, &m.origin)
			}
			return 0, nil
		})
		g.meta = append(g.meta, m)
		return n, err
	case 4:
		return consumePacked(typ, b, &g.vertexStops)
	}
	return 0, nil
}

func pointFields(p *settings.Point) fieldFunc {
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeDouble(typ, b, &p.X)
		case 2:
			return consumeDouble(typ, b, &p.Y)
		}
		return 0, nil
	}
}

func colorFields(c *settings.Color) fieldFunc {
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint32
		switch num {
		case 1, 3, 4, 5:
			n, err := consumeUint32(typ, b, &v)
			if err != nil {
				return 0, err
			}
			if v > 255 {
				return 0, fmt.Errorf("color component %d out of range", v)
			}
			switch num {
			case 1:
				c.Kind = settings.ColorKind(v)
			case 3:
				c.Red = uint8(v)
			case 4:
				c.Green = uint8(v)
			case 5:
				c.Blue = uint8(v)
			}
			return n, nil
		case 2:
			return consumeString(typ, b, &c.Name)
		case 6:
			return consumeDouble(typ, b, &c.Opacity)
		}
		return 0, nil
	}
}

func renderFields(rs *settings.RenderSettings) fieldFunc {
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var i int64
		switch num {
		case 1:
			return consumeDouble(typ, b, &rs.Width)
		case 2:
			return consumeDouble(typ, b, &rs.Height)
		case 3:
			return consumeDouble(typ, b, &rs.Padding)
		case 4:
			return consumeDouble(typ, b, &rs.LineWidth)
		case 5:
			return consumeDouble(typ, b, &rs.StopRadius)
		case 6:
			n, err := consumeSint(typ, b, &i)
			rs.BusLabelFontSize = int(i)
			return n, err
		case 7:
			return consumeMessage(typ, b, pointFields(&rs.BusLabelOffset))
		case 8:
			n, err := consumeSint(typ, b, &i)
			rs.StopLabelFontSize = int(i)
			return n, err
		case 9:
			return consumeMessage(typ, b, pointFields(&rs.StopLabelOffset))
		case 10:
			return consumeMessage(typ, b, colorFields(&rs.UnderlayerColor))
		case 11:
			return consumeDouble(typ, b, &rs.UnderlayerWidth)
		case 12:
			var c settings.Color
			n, err := consumeMessage(typ, b, colorFields(&c))
			rs.ColorPalette = append(rs.ColorPalette, c)
			return n, err
		}
		return 0, nil
	}
}

// restore replays the catalogue and reattaches the persisted graph.
func (raw *rawSnapshot) restore() (*Snapshot, error) {
	names := make([]string, len(raw.stops))
	cat := catalogue.New()
	for i, s := range raw.stops {
		names[i] = s.name
		cat.AddStop(s.name, s.lat, s.lng)
	}
	if cat.NumStops() != len(raw.stops) {
		return nil, fmt.Errorf("%w: duplicate stop names", ErrCorrupt)
	}

	name := func(id uint32) (string, error) {
		if int(id) >= len(names) {
			return "", fmt.Errorf("%w: stop id %d out of range, %d stops", ErrCorrupt, id, len(names))
		}
		return names[id], nil
	}

	for _, d := range raw.distances {
		from, err := name(d.from)
		if err != nil {
			return nil, err
		}
		to, err := name(d.to)
		if err != nil {
			return nil, err
		}
		if err := cat.AddDistance(from, to, int(d.meters)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	for _, r := range raw.routes {
		stops := make([]string, len(r.stops))
		for i, id := range r.stops {
			s, err := name(id)
			if err != nil {
				return nil, err
			}
			stops[i] = s
		}
		kind := catalogue.Linear
		if r.circular {
			kind = catalogue.Circular
		}
		if err := cat.AddRoute(r.name, stops, kind); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	rg := &raw.graph
	if int(rg.numVertices) != len(rg.vertexStops) {
		return nil, fmt.Errorf("%w: %d vertices but %d vertex stops", ErrCorrupt, rg.numVertices, len(rg.vertexStops))
	}
	vertexStops := make([]string, len(rg.vertexStops))
	for v, id := range rg.vertexStops {
		s, err := name(id)
		if err != nil {
			return nil, err
		}
		vertexStops[v] = s
	}
	meta := make([]graph.EdgeMeta, len(rg.meta))
	for i, m := range rg.meta {
		origin, err := name(m.origin)
		if err != nil {
			return nil, err
		}
		meta[i] = graph.EdgeMeta{Bus: m.bus, SpanCount: int(m.span), OriginStop: origin, Minutes: m.minutes}
	}
	g, err := graph.FromEdges(vertexStops, rg.edges, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if err := raw.routing.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return &Snapshot{
		BuildID:   raw.buildID,
		CreatedAt: time.Unix(0, raw.created).UTC(),
		Routing:   raw.routing,
		Render:    raw.render,
		Catalogue: cat,
		Graph:     g,
	}, nil
}
