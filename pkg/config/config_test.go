package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_router/pkg/api"
	osmimport "transit_router/pkg/osm"
	"transit_router/pkg/settings"
)

const testConfig = `
snapshot: /var/lib/transit/transport.db
workers: 4
routing_settings:
  bus_velocity: 40
  bus_wait_time: 6
render_settings:
  width: 1200
  height: 1200
  padding: 50
  line_width: 14
  stop_radius: 5
  bus_label_font_size: 20
  bus_label_offset: [7, 15]
  stop_label_font_size: 20
  stop_label_offset: [7, -3]
  underlayer_color: [255, 255, 255, 0.85]
  underlayer_width: 3
  color_palette: [green, [255, 160, 0], red]
osm:
  input: moscow.osm.pbf
  format: pbf
  detour_factor: 1.3
  bbox: [55.5, 37.3, 55.9, 37.9]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/transit/transport.db", cfg.Snapshot)
	assert.Equal(t, 4, cfg.Workers)
	require.NotNil(t, cfg.Routing)
	assert.InDelta(t, 40000.0/60, cfg.Routing.Settings().BusVelocity, 1e-9)

	require.NotNil(t, cfg.Render)
	rs := cfg.Render.Settings()
	assert.Equal(t, settings.Point{X: 7, Y: -3}, rs.StopLabelOffset)
	assert.Equal(t, settings.RGBA(255, 255, 255, 0.85), rs.UnderlayerColor)
	assert.Equal(t, []settings.Color{
		settings.NamedColor("green"),
		settings.RGB(255, 160, 0),
		settings.NamedColor("red"),
	}, rs.ColorPalette)

	opts := cfg.OSM.ParseOptions()
	assert.Equal(t, osmimport.FormatPBF, opts.Format)
	assert.Equal(t, 1.3, opts.DetourFactor)
	assert.Equal(t, osmimport.BBox{MinLat: 55.5, MinLng: 37.3, MaxLat: 55.9, MaxLng: 37.9}, opts.BBox)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, cfg.Routing)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero velocity", "routing_settings: {bus_velocity: 0, bus_wait_time: 1}"},
		{"negative wait", "routing_settings: {bus_velocity: 30, bus_wait_time: -1}"},
		{"negative workers", "workers: -1"},
		{"unknown format", "osm: {format: o5m}"},
		{"short bbox", "osm: {bbox: [1, 2, 3]}"},
		{"detour below one", "osm: {detour_factor: 0.5}"},
		{"bad color", "render_settings: {underlayer_color: [1, 2]}"},
		{"not yaml", "routing_settings: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFillFrom(t *testing.T) {
	doc, err := api.ReadDocument(strings.NewReader(`{
		"routing_settings": {"bus_velocity": 30, "bus_wait_time": 2},
		"render_settings": {"width": 600},
		"serialization_settings": {"file": "doc.db"}
	}`))
	require.NoError(t, err)

	cfg, err := Parse([]byte("snapshot: cfg.db\nrouting_settings: {bus_velocity: 40, bus_wait_time: 6}"))
	require.NoError(t, err)
	cfg.FillFrom(doc)

	assert.Equal(t, "cfg.db", cfg.Snapshot)
	assert.Equal(t, 40.0, cfg.Routing.BusVelocity)
	require.NotNil(t, cfg.Render)
	assert.Equal(t, 600.0, cfg.Render.Width)

	empty := &Config{}
	empty.FillFrom(doc)
	assert.Equal(t, "doc.db", empty.Snapshot)
	assert.Equal(t, 30.0, empty.Routing.BusVelocity)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRANSIT_CONFIG=from-file.yml\nTRANSIT_SNAPSHOT=from-file.db\n"), 0o644))
	t.Chdir(dir)
	t.Setenv(EnvSnapshot, "from-env.db")
	// Make sure the file value is visible.
	os.Unsetenv(EnvConfig)
	t.Cleanup(func() { os.Unsetenv(EnvConfig) })

	env := LoadEnv()
	assert.Equal(t, "from-env.db", env.Snapshot)
	assert.Equal(t, "from-file.yml", env.Config)
}

func TestOr(t *testing.T) {
	assert.Equal(t, "a", Or("a", "b"))
	assert.Equal(t, "b", Or("", "b"))
}
