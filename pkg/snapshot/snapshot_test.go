package snapshot

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_router/internal/testnet"
	"transit_router/pkg/catalogue"
	"transit_router/pkg/graph"
	"transit_router/pkg/settings"
)

func testRender() settings.RenderSettings {
	return settings.RenderSettings{
		Width:             1200,
		Height:            1200,
		Padding:           50,
		LineWidth:         14,
		StopRadius:        5,
		BusLabelFontSize:  20,
		BusLabelOffset:    settings.Point{X: 7, Y: 15},
		StopLabelFontSize: 20,
		StopLabelOffset:   settings.Point{X: 7, Y: -3},
		UnderlayerColor:   settings.RGBA(255, 255, 255, 0.85),
		UnderlayerWidth:   3,
		ColorPalette: []settings.Color{
			settings.NamedColor("green"),
			settings.RGB(255, 160, 0),
			settings.NamedColor("red"),
		},
	}
}

func buildTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	cat := testnet.Catalogue(t)
	g, err := graph.Build(cat, testnet.Settings)
	require.NoError(t, err)
	return New(cat, g, testnet.Settings, testRender())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	original := buildTestSnapshot(t)
	path := filepath.Join(t.TempDir(), "transport.db")

	require.NoError(t, Save(path, original))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.BuildID, loaded.BuildID)
	assert.True(t, original.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, original.Routing, loaded.Routing)
	assert.Equal(t, original.Render, loaded.Render)

	oc, lc := original.Catalogue, loaded.Catalogue
	assert.Equal(t, oc.NumStops(), lc.NumStops())
	assert.Equal(t, oc.NumRoutes(), lc.NumRoutes())
	assert.Equal(t, oc.NumDistances(), lc.NumDistances())
	assert.Equal(t, oc.Stops(), lc.Stops())
	assert.Equal(t, oc.Distances(), lc.Distances())
	for _, r := range oc.Routes() {
		want, _ := oc.RouteStat(r.Name)
		got, ok := lc.RouteStat(r.Name)
		require.True(t, ok, r.Name)
		assert.Equal(t, want, got)
	}
	buses, ok := lc.RoutesThroughStop(testnet.Rasskazovka)
	require.True(t, ok)
	assert.Equal(t, []string{"750", "828"}, buses)

	og, lg := original.Graph, loaded.Graph
	assert.Equal(t, og.NumVertices, lg.NumVertices)
	assert.Equal(t, og.Edges, lg.Edges)
	assert.Equal(t, og.Meta, lg.Meta)
	assert.Equal(t, og.VertexStops(), lg.VertexStops())
	assert.Equal(t, og.FirstOut, lg.FirstOut)
	assert.Equal(t, og.AdjEdge, lg.AdjEdge)
}

func TestDecodeKeepsStoredGraph(t *testing.T) {
	cat := testnet.Catalogue(t)
	built, err := graph.Build(cat, testnet.Settings)
	require.NoError(t, err)

	edges := slices.Clone(built.Edges)
	edges[0].Weight = 123.5
	edited, err := graph.FromEdges(built.VertexStops(), edges, built.Meta)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, New(cat, edited, testnet.Settings, testRender())))
	loaded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, 123.5, loaded.Graph.Edge(0).Weight)
	assert.NotEqual(t, built.Edge(0).Weight, loaded.Graph.Edge(0).Weight)
	assert.Equal(t, edited.Edges, loaded.Graph.Edges)
}

func TestDecodeOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	hdr := fileHeader{Version: version, PayloadLen: maxPayload}
	copy(hdr.Magic[:], magicBytes)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &hdr))
	buf.WriteString("tiny")

	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorContains(t, err, "short payload")
}

func TestLoadedRouterAnswersQueries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, buildTestSnapshot(t)))

	loaded, err := Decode(&buf)
	require.NoError(t, err)

	got, err := loaded.Router().BuildRoute(testnet.Tolsto, testnet.Marushkino)
	require.NoError(t, err)
	assert.InDelta(t, 9.8, got.TotalTime, 1e-9)
	require.Len(t, got.Items, 2)
	assert.Equal(t, testnet.Tolsto, got.Items[0].StopName)
	assert.Equal(t, "750", got.Items[1].Bus)
	assert.Equal(t, 1, got.Items[1].SpanCount)
	assert.InDelta(t, 7.8, got.Items[1].Minutes, 1e-9)
}

func TestEmptyNetworkRoundTrip(t *testing.T) {
	cat := catalogue.New()
	g, err := graph.Build(cat, testnet.Settings)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, New(cat, g, testnet.Settings, settings.RenderSettings{})))

	loaded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Zero(t, loaded.Catalogue.NumStops())
	assert.Zero(t, loaded.Graph.NumVertices)
	assert.Equal(t, testnet.Settings, loaded.Routing)
}

func TestDecodeCorrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, buildTestSnapshot(t)))
	valid := buf.Bytes()

	flip := func(i int) []byte {
		b := bytes.Clone(valid)
		b[i] ^= 0xff
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated header", valid[:10]},
		{"truncated payload", valid[:len(valid)/2]},
		{"missing checksum", valid[:len(valid)-4]},
		{"bad magic", flip(0)},
		{"bad version", flip(8)},
		{"payload bit flip", flip(40)},
		{"checksum bit flip", flip(len(valid) - 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestUnmarshalRejectsBadReferences(t *testing.T) {
	// A route referencing stop id 5 with only one stop stored.
	var b []byte
	var stop []byte
	stop = appendString(stop, 1, "A")
	stop = appendDouble(stop, 2, 55)
	stop = appendDouble(stop, 3, 37)
	b = appendBytes(b, fieldStops, stop)

	var route []byte
	route = appendString(route, 1, "1")
	route = appendBool(route, 2, true)
	route = appendPacked(route, 3, []uint32{0, 5})
	b = appendBytes(b, fieldRoutes, route)

	_, err := unmarshal(b)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func BenchmarkEncode(b *testing.B) {
	cat := testnet.Catalogue(b)
	g, err := graph.Build(cat, testnet.Settings)
	if err != nil {
		b.Fatal(err)
	}
	s := New(cat, g, testnet.Settings, testRender())
	var buf bytes.Buffer
	for b.Loop() {
		buf.Reset()
		if err := Encode(&buf, s); err != nil {
			b.Fatal(err)
		}
	}
}
