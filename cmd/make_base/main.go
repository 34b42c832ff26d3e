package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"transit_router/pkg/api"
	"transit_router/pkg/catalogue"
	"transit_router/pkg/config"
	"transit_router/pkg/graph"
	osmimport "transit_router/pkg/osm"
	"transit_router/pkg/settings"
	"transit_router/pkg/snapshot"
)

func main() {
	env := config.LoadEnv()

	input := flag.String("input", "", "JSON document with base_requests (\"-\" for stdin)")
	osmInput := flag.String("osm", "", "OSM extract with bus route relations (.osm.pbf, or .osm with --osm-format xml)")
	osmFormat := flag.String("osm-format", "", "OSM input format: pbf or xml (default pbf)")
	bbox := flag.String("bbox", "", "Bounding box filter for OSM stops: minLat,minLng,maxLat,maxLng")
	detour := flag.Float64("detour", 0, "Factor turning straight-line OSM distances into road distances")
	configPath := flag.String("config", env.Config, "YAML config file (env "+config.EnvConfig+")")
	output := flag.String("output", env.Snapshot, "Output snapshot path (env "+config.EnvSnapshot+")")
	velocity := flag.Float64("bus-velocity", 0, "Bus velocity in km/h (overrides config)")
	wait := flag.Float64("bus-wait-time", -1, "Boarding wait in minutes (overrides config)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *osmInput != "" {
		cfg.OSM.Input = *osmInput
	}
	if *osmFormat != "" {
		cfg.OSM.Format = *osmFormat
	}
	if *detour > 0 {
		cfg.OSM.DetourFactor = *detour
	}
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		cfg.OSM.BBox = []float64{minLat, minLng, maxLat, maxLng}
	}

	if *input == "" && cfg.OSM.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: make_base [--input doc.json | --input -] [--osm file.osm.pbf] [--config config.yml] [--output transport.db]")
		os.Exit(1)
	}

	start := time.Now()
	var records api.BaseRecords

	// Step 1: Read the JSON document.
	if *input != "" {
		log.Printf("Reading document from %s...", *input)
		doc, err := readDocument(*input)
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}
		cfg.FillFrom(doc)
		docRecords, err := doc.BaseRecords()
		if err != nil {
			log.Fatalf("Invalid base requests: %v", err)
		}
		log.Printf("Document: %s", &docRecords)
		records.Merge(docRecords)
	}

	// Step 2: Import OSM bus routes.
	if cfg.OSM.Input != "" {
		log.Printf("Opening OSM file %s...", cfg.OSM.Input)
		f, err := os.Open(cfg.OSM.Input)
		if err != nil {
			log.Fatalf("Failed to open OSM file: %v", err)
		}
		osmRecords, err := osmimport.Parse(context.Background(), f, cfg.OSM.ParseOptions())
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse OSM data: %v", err)
		}
		records.Merge(*osmRecords)
	}

	if *velocity > 0 || *wait >= 0 {
		if cfg.Routing == nil {
			cfg.Routing = &api.RoutingSettingsJSON{}
		}
		if *velocity > 0 {
			cfg.Routing.BusVelocity = *velocity
		}
		if *wait >= 0 {
			cfg.Routing.BusWaitTime = *wait
		}
	}
	if cfg.Routing == nil {
		log.Fatalf("No routing settings: set routing_settings in the document or config, or pass --bus-velocity and --bus-wait-time")
	}
	routingSettings := cfg.Routing.Settings()
	log.Printf("Routing: %.1f km/h, %g min wait", routingSettings.VelocityKmh(), routingSettings.BusWaitTime)
	var renderSettings settings.RenderSettings
	if cfg.Render != nil {
		renderSettings = cfg.Render.Settings()
	}
	path := config.Or(cfg.Snapshot, "transport.db")
	if *output != "" {
		path = *output
	}

	// Step 3: Load the catalogue.
	log.Println("Loading catalogue...")
	cat := catalogue.New()
	if err := records.Apply(cat); err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	log.Printf("Catalogue: %d stops, %d routes, %d distances", cat.NumStops(), cat.NumRoutes(), cat.NumDistances())

	// Step 4: Build graph.
	log.Println("Building graph...")
	g, err := graph.Build(cat, routingSettings)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	log.Printf("Graph: %d vertices, %d edges", g.NumVertices, g.NumEdges())
	stats := graph.Components(g)
	if stats.Count > 1 {
		log.Printf("Warning: graph has %d components, largest has %d of %d vertices", stats.Count, stats.Largest, g.NumVertices)
	}

	// Step 5: Serialize.
	snap := snapshot.New(cat, g, routingSettings, renderSettings)
	log.Printf("Writing snapshot %s to %s...", snap.BuildID, path)
	if err := snapshot.Save(path, snap); err != nil {
		log.Fatalf("Failed to write snapshot: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Failed to stat snapshot: %v", err)
	}
	log.Printf("Done in %s. Output: %s (%.1f KB)", time.Since(start).Round(time.Millisecond), path, float64(info.Size())/1024)
}

func readDocument(path string) (*api.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return api.ReadDocument(r)
}
