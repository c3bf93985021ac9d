// Package main implements the quarry-query binary: evaluate one QuerySpec
// (a JSON file) against a CSV file or a written partitioned dataset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/arkilian/quarry/internal/dataset"
	"github.com/arkilian/quarry/internal/ingest"
	"github.com/arkilian/quarry/internal/query"
	"github.com/arkilian/quarry/internal/storage"
	"github.com/arkilian/quarry/pkg/types"
)

func main() {
	var (
		specFile    string
		csvPath     string
		destination string
		storagePath string
	)

	flag.StringVar(&specFile, "spec", "", "Path to a QuerySpec JSON file (required)")
	flag.StringVar(&csvPath, "csv", "", "CSV file to query")
	flag.StringVar(&destination, "dataset", "", "Partitioned dataset destination to query")
	flag.StringVar(&storagePath, "storage-path", "./data/quarry/storage", "Local storage root for --dataset")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "quarry-query - evaluate one aggregate query\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quarry-query --spec query.json (--csv file.csv | --dataset prefix)\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if specFile == "" || (csvPath == "") == (destination == "") {
		flag.Usage()
		os.Exit(2)
	}

	spec, err := loadSpec(specFile)
	if err != nil {
		log.Fatalf("spec error: %v", err)
	}

	table, err := loadTable(csvPath, destination, storagePath)
	if err != nil {
		log.Fatalf("load error: %v", err)
	}

	res, err := query.NewEngine().Evaluate(table, spec)
	if err != nil {
		log.Fatalf("query error: %v", err)
	}

	fmt.Println(strings.Join(res.Columns, " | "))
	for _, row := range res.Rows {
		vals := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			vals[i] = types.Format(row[col])
		}
		fmt.Println(strings.Join(vals, " | "))
	}
	fmt.Fprintf(os.Stderr, "%d rows in %s\n", len(res.Rows), res.Elapsed)
}

func loadSpec(path string) (query.QuerySpec, error) {
	var spec query.QuerySpec

	data, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("malformed spec file: %w", err)
	}
	return spec, nil
}

func loadTable(csvPath, destination, storagePath string) (*types.Table, error) {
	if csvPath != "" {
		return ingest.LoadFile(csvPath)
	}

	store, err := storage.NewLocalStorage(storagePath)
	if err != nil {
		return nil, err
	}
	return dataset.NewReader(store).Read(context.Background(), destination)
}
