// Package config loads the optional YAML configuration shared by the
// commands.
//
// Settings can come from three places. Command-line flags win over the YAML
// file, and the YAML file wins over the settings embedded in a JSON request
// document. Environment variables (optionally from a .env file) only supply
// the defaults of the -config and -snapshot flags.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"transit_router/pkg/api"
	osmimport "transit_router/pkg/osm"
)

// Environment variables read by LoadEnv.
const (
	EnvSnapshot = "TRANSIT_SNAPSHOT"
	EnvConfig   = "TRANSIT_CONFIG"
)

// Config is the YAML configuration file.
type Config struct {
	Snapshot string `yaml:"snapshot"`
	Workers  int    `yaml:"workers" validate:"gte=0"`

	Routing *api.RoutingSettingsJSON `yaml:"routing_settings"`
	Render  *api.RenderSettingsJSON  `yaml:"render_settings"`

	OSM OSMConfig `yaml:"osm"`
}

// OSMConfig configures the OpenStreetMap importer.
type OSMConfig struct {
	Input        string    `yaml:"input"`
	Format       string    `yaml:"format" validate:"omitempty,oneof=pbf xml"`
	DetourFactor float64   `yaml:"detour_factor" validate:"omitempty,gte=1"`
	BBox         []float64 `yaml:"bbox" validate:"omitempty,len=4"` // minLat, minLng, maxLat, maxLng
}

// ParseOptions converts to importer options.
func (o OSMConfig) ParseOptions() osmimport.ParseOptions {
	opts := osmimport.ParseOptions{DetourFactor: o.DetourFactor}
	if o.Format == "xml" {
		opts.Format = osmimport.FormatXML
	}
	if len(o.BBox) == 4 {
		opts.BBox = osmimport.BBox{MinLat: o.BBox[0], MinLng: o.BBox[1], MaxLat: o.BBox[2], MaxLng: o.BBox[3]}
	}
	return opts
}

// Load reads and validates the configuration at path. An empty path yields
// an empty configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// FillFrom copies settings the configuration leaves unset from a request
// document.
func (c *Config) FillFrom(doc *api.Document) {
	if c.Routing == nil && doc.RoutingSettings != nil {
		c.Routing = doc.RoutingSettings
	}
	if c.Render == nil && doc.RenderSettings != nil {
		c.Render = doc.RenderSettings
	}
	if c.Snapshot == "" && doc.SerializationSettings != nil {
		c.Snapshot = doc.SerializationSettings.File
	}
}

// Env holds flag defaults taken from the environment.
type Env struct {
	Snapshot string
	Config   string
}

// LoadEnv reads .env from the working directory if present, then the
// process environment. Variables already set in the process are not
// overridden by the file.
func LoadEnv() Env {
	_ = godotenv.Load()
	return Env{
		Snapshot: os.Getenv(EnvSnapshot),
		Config:   os.Getenv(EnvConfig),
	}
}

// Or returns s, or def when s is empty.
func Or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
