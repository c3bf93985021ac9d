// Package config provides unified configuration for the quarry tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a quarry run.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// CSVPath is the source CSV file to ingest
	CSVPath string `json:"csv_path" yaml:"csv_path"`

	// TableName is the name the ingested table is registered under
	TableName string `json:"table_name" yaml:"table_name"`

	// Dataset configuration for partitioned persistence
	Dataset DatasetConfig `json:"dataset" yaml:"dataset"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// DatasetConfig holds partitioned dataset configuration.
type DatasetConfig struct {
	// Destination is the object-path prefix for the partitioned dataset
	Destination string `json:"destination" yaml:"destination"`

	// PartitionColumn is the column whose distinct values split the dataset
	PartitionColumn string `json:"partition_column" yaml:"partition_column"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local runs.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "./data/quarry",
		CSVPath:   "home_sales_revised.csv",
		TableName: "home_sales",
		Dataset: DatasetConfig{
			Destination:     "home_sales_partitioned",
			PartitionColumn: "date_built",
		},
		Storage: StorageConfig{
			Type: "local",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/quarry"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
}

// CatalogPath returns the path to the catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.TableName == "" {
		return fmt.Errorf("table_name is required")
	}
	if c.Dataset.Destination == "" {
		return fmt.Errorf("dataset.destination is required")
	}
	if c.Dataset.PartitionColumn == "" {
		return fmt.Errorf("dataset.partition_column is required")
	}
	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the QUARRY_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("QUARRY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QUARRY_CSV_PATH"); v != "" {
		cfg.CSVPath = v
	}
	if v := os.Getenv("QUARRY_TABLE_NAME"); v != "" {
		cfg.TableName = v
	}
	if v := os.Getenv("QUARRY_DATASET_DESTINATION"); v != "" {
		cfg.Dataset.Destination = v
	}
	if v := os.Getenv("QUARRY_DATASET_PARTITION_COLUMN"); v != "" {
		cfg.Dataset.PartitionColumn = v
	}
	if v := os.Getenv("QUARRY_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("QUARRY_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("QUARRY_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("QUARRY_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("QUARRY_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
