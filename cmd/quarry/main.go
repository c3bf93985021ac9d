// Package main implements the quarry binary: the linear home-sales
// pipeline (ingest, query, cache comparison, partitioned persistence).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/arkilian/quarry/internal/app"
	"github.com/arkilian/quarry/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile      string
		dataDir         string
		csvPath         string
		partitionColumn string
		showVersion     bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&csvPath, "csv", "", "Path to the home sales CSV file")
	flag.StringVar(&partitionColumn, "partition-column", "", "Column to partition the dataset by")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quarry - local aggregate queries over home sales data\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quarry [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quarry --csv home_sales_revised.csv\n")
		fmt.Fprintf(os.Stderr, "  quarry --config quarry.yaml --partition-column date_built\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_DATA_DIR      Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_CSV_PATH      Source CSV file\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_STORAGE_TYPE  Storage backend: local, s3\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("quarry %s (%s)\n", version, commit)
		return
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// Flags override file and environment settings.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if csvPath != "" {
		cfg.CSVPath = csvPath
	}
	if partitionColumn != "" {
		cfg.Dataset.PartitionColumn = partitionColumn
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("pipeline error: %v", err)
	}
}

func loadConfig(configFile string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}
