package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"qms-mcp/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, spike")
	outDir := flag.String("out", "./cache", "Output directory for the snapshot cache")
	source := flag.String("source", "mock", "Snapshot source name (serve it with QMS_SOURCE and QMS_OFFLINE=true)")
	count := flag.Int("count", 200, "Number of non-conformities to generate; other collections scale with it")
	months := flag.Int("months", 14, "Number of months of history")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Count:    *count,
		Months:   *months,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Count: %d, Months: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Count, cfg.Months, cfg.Seed, *outDir)

	collections := engine.Generate(cfg)
	if err := engine.Save(*outDir, *source, collections, cfg.Now); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d records written.\n", collections.Total())
}
