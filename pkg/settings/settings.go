// Package settings holds the configuration records shared by the build and
// query phases and persisted inside a snapshot.
package settings

import (
	"errors"
	"fmt"
)

// RoutingSettings controls itinerary costs.
type RoutingSettings struct {
	// BusVelocity is the bus speed in meters per minute.
	BusVelocity float64
	// BusWaitTime is the boarding wait in minutes.
	BusWaitTime float64
}

// NewRoutingSettings converts a speed in km/h into RoutingSettings.
func NewRoutingSettings(velocityKmh, waitMinutes float64) RoutingSettings {
	return RoutingSettings{
		BusVelocity: velocityKmh * 1000 / 60,
		BusWaitTime: waitMinutes,
	}
}

// VelocityKmh returns the bus speed in km/h.
func (s RoutingSettings) VelocityKmh() float64 {
	return s.BusVelocity * 60 / 1000
}

// Validate reports settings that would produce meaningless graph weights.
func (s RoutingSettings) Validate() error {
	if !(s.BusVelocity > 0) {
		return fmt.Errorf("bus velocity must be positive, got %v m/min", s.BusVelocity)
	}
	if !(s.BusWaitTime >= 0) {
		return fmt.Errorf("bus wait time must be non-negative, got %v min", s.BusWaitTime)
	}
	return nil
}

// Point is a 2D offset in render units.
type Point struct {
	X float64
	Y float64
}

// ColorKind selects which field of a Color is meaningful.
type ColorKind uint8

const (
	ColorNone ColorKind = iota
	ColorNamed
	ColorRGB
	ColorRGBA
)

// Color is a render color: none, a named color, rgb or rgba.
type Color struct {
	Kind    ColorKind
	Name    string
	Red     uint8
	Green   uint8
	Blue    uint8
	Opacity float64
}

// NamedColor returns a color given by name, e.g. "green".
func NamedColor(name string) Color { return Color{Kind: ColorNamed, Name: name} }

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color { return Color{Kind: ColorRGB, Red: r, Green: g, Blue: b} }

// RGBA returns a color with opacity in [0, 1].
func RGBA(r, g, b uint8, opacity float64) Color {
	return Color{Kind: ColorRGBA, Red: r, Green: g, Blue: b, Opacity: opacity}
}

// String renders the color the way SVG attributes expect it.
func (c Color) String() string {
	switch c.Kind {
	case ColorNamed:
		return c.Name
	case ColorRGB:
		return fmt.Sprintf("rgb(%d,%d,%d)", c.Red, c.Green, c.Blue)
	case ColorRGBA:
		return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.Red, c.Green, c.Blue, c.Opacity)
	default:
		return "none"
	}
}

// ErrInvalidColor is returned when a color cannot be decoded.
var ErrInvalidColor = errors.New("invalid color")

// ColorFromComponents decodes the array form used by request documents:
// three components are rgb, four are rgba.
func ColorFromComponents(v []float64) (Color, error) {
	switch len(v) {
	case 3:
		return RGB(component(v[0]), component(v[1]), component(v[2])), nil
	case 4:
		return RGBA(component(v[0]), component(v[1]), component(v[2]), v[3]), nil
	default:
		return Color{}, fmt.Errorf("%w: %d components", ErrInvalidColor, len(v))
	}
}

func component(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// RenderSettings configures the map renderer. The engine stores and returns
// them without interpreting any field.
type RenderSettings struct {
	Width  float64
	Height float64

	Padding float64

	LineWidth  float64
	StopRadius float64

	BusLabelFontSize int
	BusLabelOffset   Point

	StopLabelFontSize int
	StopLabelOffset   Point

	UnderlayerColor Color
	UnderlayerWidth float64

	ColorPalette []Color
}
