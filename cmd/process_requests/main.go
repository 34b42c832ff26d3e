package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"transit_router/pkg/api"
	"transit_router/pkg/config"
	"transit_router/pkg/snapshot"
)

func main() {
	env := config.LoadEnv()

	input := flag.String("input", "-", "JSON document with stat_requests (\"-\" for stdin)")
	output := flag.String("output", "-", "Where to write responses (\"-\" for stdout)")
	snapshotPath := flag.String("snapshot", env.Snapshot, "Snapshot written by make_base (env "+config.EnvSnapshot+")")
	configPath := flag.String("config", env.Config, "YAML config file (env "+config.EnvConfig+")")
	workers := flag.Int("workers", 0, "Requests answered in parallel (default: config, else number of CPUs)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	doc, err := readDocument(*input)
	if err != nil {
		log.Fatalf("Failed to read document: %v", err)
	}
	cfg.FillFrom(doc)

	path := config.Or(*snapshotPath, config.Or(cfg.Snapshot, "transport.db"))
	n := *workers
	if n <= 0 {
		n = cfg.Workers
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}

	start := time.Now()

	// Load snapshot.
	log.Printf("Loading snapshot from %s...", path)
	snap, err := snapshot.Load(path)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	log.Printf("Loaded build %s (%s): %d stops, %d routes, %d vertices, %d edges",
		snap.BuildID, snap.CreatedAt.Format(time.RFC3339),
		snap.Catalogue.NumStops(), snap.Catalogue.NumRoutes(), snap.Graph.NumVertices, snap.Graph.NumEdges())
	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	handlers := api.NewHandlers(snap.Catalogue, snap.Router())

	start = time.Now()
	responses := handlers.HandleBatch(doc.StatRequests, n)
	log.Printf("Answered %d requests with %d workers in %s", len(responses), n, time.Since(start).Round(time.Microsecond))

	var w io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := api.WriteResponses(bw, responses); err != nil {
		log.Fatalf("Failed to write responses: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("Failed to write responses: %v", err)
	}
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
