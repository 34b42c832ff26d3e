package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"

	"transit_router/pkg/config"
	"transit_router/pkg/export"
	"transit_router/pkg/snapshot"
)

func main() {
	env := config.LoadEnv()

	snapshotPath := flag.String("snapshot", config.Or(env.Snapshot, "transport.db"), "Snapshot written by make_base (env "+config.EnvSnapshot+")")
	output := flag.String("output", "-", "GeoJSON output path (\"-\" for stdout)")
	edges := flag.Bool("edges", false, "Include one line per routing graph edge")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	log.Printf("Loading snapshot from %s...", *snapshotPath)
	snap, err := snapshot.Load(*snapshotPath)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	fc := export.Network(snap.Catalogue, snap.Graph, export.Options{Edges: *edges})
	log.Printf("Exporting %d features", len(fc.Features))

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
	if err := export.Write(bw, fc); err != nil {
		log.Fatalf("Failed to export: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("Failed to export: %v", err)
	}
}
