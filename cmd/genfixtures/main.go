// Command genfixtures writes deterministic hazard rasters, road networks and
// sample analysis requests for local smoke tests of the exposure service.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures
//
// The requests file holds one JSON request per line with paths relative to
// the output directory, ready to be produced to the requests topic with
// DATA_DIR pointing at that directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/couchcryptid/hazard-exposure-service/internal/fixtures"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("genfixtures", flag.ContinueOnError)
	out := fs.String("out", "", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	set, err := fixtures.Write(*out)
	if err != nil {
		return fmt.Errorf("write fixtures: %w", err)
	}

	requests := []domain.AnalysisRequest{
		{ID: "scenario", Network: set.ScenarioNetwork, Rasters: []string{set.ScenarioRaster}},
		{ID: "flood", Network: set.Roads, Rasters: set.FloodRasters},
		// Fails with a grid mismatch.
		{ID: "rotated", Network: set.Roads, Rasters: append([]string{set.FloodRasters[0]}, set.RotatedRaster)},
	}
	if err := writeRequests(filepath.Join(*out, "requests.jsonl"), requests); err != nil {
		return err
	}

	log.Printf("wrote %d rasters and %d requests to %s", len(set.FloodRasters)+2, len(requests), *out)
	return nil
}

func writeRequests(path string, requests []domain.AnalysisRequest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, req := range requests {
		if err := enc.Encode(req); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode request %s: %w", req.ID, err)
		}
	}
	return f.Close()
}
