package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"transit_router/pkg/settings"
)

// Document is a JSON batch: the network description, the settings, and the
// queries to answer. The build phase reads the base requests and settings;
// the query phase reads the stat requests.
type Document struct {
	BaseRequests          []BaseRequest              `json:"base_requests,omitempty"`
	RoutingSettings       *RoutingSettingsJSON       `json:"routing_settings,omitempty"`
	RenderSettings        *RenderSettingsJSON        `json:"render_settings,omitempty"`
	SerializationSettings *SerializationSettingsJSON `json:"serialization_settings,omitempty"`
	StatRequests          []StatRequest              `json:"stat_requests,omitempty"`
}

// BaseRequest is a "Stop" or "Bus" entry of base_requests.
type BaseRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`

	// Stop.
	Latitude      float64        `json:"latitude,omitempty"`
	Longitude     float64        `json:"longitude,omitempty"`
	RoadDistances map[string]int `json:"road_distances,omitempty"`

	// Bus.
	Stops       []string `json:"stops,omitempty"`
	IsRoundtrip bool     `json:"is_roundtrip,omitempty"`
}

// StatRequest is one entry of stat_requests.
type StatRequest struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	// Route.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Nearby.
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
}

// RoutingSettingsJSON carries bus_velocity in km/h and bus_wait_time in
// minutes.
type RoutingSettingsJSON struct {
	BusVelocity float64 `json:"bus_velocity" yaml:"bus_velocity" validate:"gt=0"`
	BusWaitTime float64 `json:"bus_wait_time" yaml:"bus_wait_time" validate:"gte=0"`
}

// Settings converts to the internal units.
func (r RoutingSettingsJSON) Settings() settings.RoutingSettings {
	return settings.NewRoutingSettings(r.BusVelocity, r.BusWaitTime)
}

// SerializationSettingsJSON names the snapshot file.
type SerializationSettingsJSON struct {
	File string `json:"file" yaml:"file"`
}

// RenderSettingsJSON is the render_settings object. Offsets are [dx, dy].
type RenderSettingsJSON struct {
	Width             float64     `json:"width" yaml:"width"`
	Height            float64     `json:"height" yaml:"height"`
	Padding           float64     `json:"padding" yaml:"padding"`
	LineWidth         float64     `json:"line_width" yaml:"line_width"`
	StopRadius        float64     `json:"stop_radius" yaml:"stop_radius"`
	BusLabelFontSize  int         `json:"bus_label_font_size" yaml:"bus_label_font_size"`
	BusLabelOffset    [2]float64  `json:"bus_label_offset" yaml:"bus_label_offset"`
	StopLabelFontSize int         `json:"stop_label_font_size" yaml:"stop_label_font_size"`
	StopLabelOffset   [2]float64  `json:"stop_label_offset" yaml:"stop_label_offset"`
	UnderlayerColor   ColorJSON   `json:"underlayer_color" yaml:"underlayer_color"`
	UnderlayerWidth   float64     `json:"underlayer_width" yaml:"underlayer_width"`
	ColorPalette      []ColorJSON `json:"color_palette" yaml:"color_palette"`
}

// Settings converts to the record persisted in the snapshot.
func (r RenderSettingsJSON) Settings() settings.RenderSettings {
	palette := make([]settings.Color, len(r.ColorPalette))
	for i, c := range r.ColorPalette {
		palette[i] = c.Color
	}
	return settings.RenderSettings{
		Width:             r.Width,
		Height:            r.Height,
		Padding:           r.Padding,
		LineWidth:         r.LineWidth,
		StopRadius:        r.StopRadius,
		BusLabelFontSize:  r.BusLabelFontSize,
		BusLabelOffset:    settings.Point{X: r.BusLabelOffset[0], Y: r.BusLabelOffset[1]},
		StopLabelFontSize: r.StopLabelFontSize,
		StopLabelOffset:   settings.Point{X: r.StopLabelOffset[0], Y: r.StopLabelOffset[1]},
		UnderlayerColor:   r.UnderlayerColor.Color,
		UnderlayerWidth:   r.UnderlayerWidth,
		ColorPalette:      palette,
	}
}

// ColorJSON decodes a color written as a name ("green", "none") or as an
// [r, g, b] or [r, g, b, opacity] array.
type ColorJSON struct {
	settings.Color
}

func (c *ColorJSON) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if name == "none" {
			c.Color = settings.Color{}
		} else {
			c.Color = settings.NamedColor(name)
		}
		return nil
	}

	var parts []float64
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %s", settings.ErrInvalidColor, data)
	}
	color, err := settings.ColorFromComponents(parts)
	if err != nil {
		return err
	}
	c.Color = color
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (c *ColorJSON) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value == "none" {
			c.Color = settings.Color{}
		} else {
			c.Color = settings.NamedColor(value.Value)
		}
		return nil
	}

	var parts []float64
	if err := value.Decode(&parts); err != nil {
		return fmt.Errorf("%w: line %d", settings.ErrInvalidColor, value.Line)
	}
	color, err := settings.ColorFromComponents(parts)
	if err != nil {
		return err
	}
	c.Color = color
	return nil
}

func (c ColorJSON) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case settings.ColorRGB:
		return json.Marshal([]int{int(c.Red), int(c.Green), int(c.Blue)})
	case settings.ColorRGBA:
		return json.Marshal([]float64{float64(c.Red), float64(c.Green), float64(c.Blue), c.Opacity})
	default:
		return json.Marshal(c.String())
	}
}

// ReadDocument decodes a JSON batch document.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// BaseRecords splits base_requests into records. Road distances of a stop
// are emitted in name order.
func (d *Document) BaseRecords() (BaseRecords, error) {
	var out BaseRecords
	for i, req := range d.BaseRequests {
		switch req.Type {
		case "Stop":
			out.Stops = append(out.Stops, AddStopRecord{Name: req.Name, Latitude: req.Latitude, Longitude: req.Longitude})
			to := make([]string, 0, len(req.RoadDistances))
			for name := range req.RoadDistances {
				to = append(to, name)
			}
			sort.Strings(to)
			for _, name := range to {
				out.Distances = append(out.Distances, AddDistanceRecord{From: req.Name, To: name, Meters: req.RoadDistances[name]})
			}
		case "Bus":
			out.Routes = append(out.Routes, AddRouteRecord{Name: req.Name, StopNames: req.Stops, IsRoundtrip: req.IsRoundtrip})
		default:
			return BaseRecords{}, fmt.Errorf("base_requests[%d]: unknown type %q", i, req.Type)
		}
	}
	return out, nil
}

// BusResponse answers a "Bus" request. Curvature is null when the route has
// no geographic length.
type BusResponse struct {
	RequestID       int      `json:"request_id"`
	Curvature       *float64 `json:"curvature"`
	RouteLength     int      `json:"route_length"`
	StopCount       int      `json:"stop_count"`
	UniqueStopCount int      `json:"unique_stop_count"`
}

// StopResponse answers a "Stop" request.
type StopResponse struct {
	RequestID int      `json:"request_id"`
	Buses     []string `json:"buses"`
}

// RouteResponse answers a "Route" request.
type RouteResponse struct {
	RequestID int        `json:"request_id"`
	TotalTime float64    `json:"total_time"`
	Items     []ItemJSON `json:"items"`
}

// ItemJSON is a "Wait" or "Bus" itinerary step.
type ItemJSON struct {
	Type      string  `json:"type"`
	StopName  string  `json:"stop_name,omitempty"`
	Bus       string  `json:"bus,omitempty"`
	SpanCount int     `json:"span_count,omitempty"`
	Time      float64 `json:"time"`
}

// NearbyResponse answers a "Nearby" request.
type NearbyResponse struct {
	RequestID int              `json:"request_id"`
	Stops     []NearbyStopJSON `json:"stops"`
}

// NearbyStopJSON is a stop with its distance from the query point.
type NearbyStopJSON struct {
	Name           string  `json:"name"`
	DistanceMeters float64 `json:"distance"`
}

// ErrorResponse answers any request that has no result.
type ErrorResponse struct {
	RequestID    int    `json:"request_id"`
	ErrorMessage string `json:"error_message"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// WriteResponses writes responses as one indented JSON array.
func WriteResponses(w io.Writer, responses []any) error {
	if responses == nil {
		responses = []any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(responses); err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	return nil
}
