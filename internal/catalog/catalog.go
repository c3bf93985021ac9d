// Package catalog records written datasets and their partitions in a
// SQLite database, so tooling can list what exists without walking storage.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arkilian/quarry/internal/dataset"
	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/pkg/types"
)

// Catalog manages dataset metadata in catalog.db.
type Catalog interface {
	// RegisterDataset records a dataset write, replacing any prior record
	// under the same name.
	RegisterDataset(ctx context.Context, rec *DatasetRecord, partitions []dataset.PartitionInfo) error

	// GetDataset retrieves a dataset record by name.
	GetDataset(ctx context.Context, name string) (*DatasetRecord, error)

	// ListDatasets returns all registered datasets, newest first.
	ListDatasets(ctx context.Context) ([]*DatasetRecord, error)

	// ListPartitions returns the partitions of a dataset.
	ListPartitions(ctx context.Context, name string) ([]*PartitionRecord, error)

	// RemoveDataset deletes a dataset record and its partition rows.
	RemoveDataset(ctx context.Context, name string) error

	// Close closes the catalog database connections.
	Close() error
}

// DatasetRecord represents one written dataset.
type DatasetRecord struct {
	Name            string
	Destination     string
	PartitionColumn string
	Schema          types.Schema
	WriteID         string
	RowCount        int64
	PartitionCount  int64
	CreatedAt       time.Time
}

// PartitionRecord represents one partition of a dataset.
type PartitionRecord struct {
	DatasetName string
	Value       string
	ObjectPath  string
	RowCount    int64
	SizeBytes   int64
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB // write connection (single writer)
	readDB *sql.DB // read connection pool
	dbPath string
	mu     sync.Mutex // write-only lock
}

// NewCatalog creates a SQLite-based catalog at dbPath.
func NewCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	c := &SQLiteCatalog{db: db, readDB: readDB, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("catalog: failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			name             TEXT PRIMARY KEY,
			destination      TEXT NOT NULL,
			partition_column TEXT NOT NULL,
			schema_json      TEXT NOT NULL,
			write_id         TEXT NOT NULL,
			row_count        INTEGER NOT NULL,
			partition_count  INTEGER NOT NULL,
			created_at       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS partitions (
			dataset_name TEXT NOT NULL,
			value        TEXT NOT NULL,
			object_path  TEXT NOT NULL,
			row_count    INTEGER NOT NULL,
			size_bytes   INTEGER NOT NULL,
			FOREIGN KEY (dataset_name) REFERENCES datasets(name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_partitions_dataset
			ON partitions(dataset_name)`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// RegisterDataset records a dataset write in a single transaction.
func (c *SQLiteCatalog) RegisterDataset(ctx context.Context, rec *DatasetRecord, partitions []dataset.PartitionInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	schemaJSON, err := json.Marshal(rec.Schema)
	if err != nil {
		return qerrors.NewInternalError("failed to encode dataset schema", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	// Replace semantics: a re-write of the same dataset name supersedes
	// the previous record.
	if _, err := tx.ExecContext(ctx, `DELETE FROM partitions WHERE dataset_name = ?`, rec.Name); err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to clear prior partitions", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO datasets
			(name, destination, partition_column, schema_json, write_id, row_count, partition_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Destination, rec.PartitionColumn, string(schemaJSON),
		rec.WriteID, rec.RowCount, int64(len(partitions)), rec.CreatedAt.Unix(),
	)
	if err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to insert dataset record", err)
	}

	for _, p := range partitions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO partitions (dataset_name, value, object_path, row_count, size_bytes)
			VALUES (?, ?, ?, ?, ?)`,
			rec.Name, p.Value, p.ObjectPath, p.RowCount, p.SizeBytes,
		)
		if err != nil {
			return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to insert partition record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to commit dataset registration", err)
	}
	return nil
}

// GetDataset retrieves a dataset record by name.
func (c *SQLiteCatalog) GetDataset(ctx context.Context, name string) (*DatasetRecord, error) {
	row := c.readDB.QueryRowContext(ctx, `
		SELECT name, destination, partition_column, schema_json, write_id, row_count, partition_count, created_at
		FROM datasets WHERE name = ?`, name)

	rec, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, qerrors.New(qerrors.ErrCategoryCatalog, qerrors.CodeDatasetNotFound,
			fmt.Sprintf("dataset %q not registered", name))
	}
	if err != nil {
		return nil, qerrors.NewCatalogError(qerrors.CodeUnexpected, "failed to read dataset record", err)
	}
	return rec, nil
}

// ListDatasets returns all registered datasets, newest first.
func (c *SQLiteCatalog) ListDatasets(ctx context.Context) ([]*DatasetRecord, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT name, destination, partition_column, schema_json, write_id, row_count, partition_count, created_at
		FROM datasets ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, qerrors.NewCatalogError(qerrors.CodeUnexpected, "failed to list datasets", err)
	}
	defer rows.Close()

	var out []*DatasetRecord
	for rows.Next() {
		rec, err := scanDataset(rows)
		if err != nil {
			return nil, qerrors.NewCatalogError(qerrors.CodeUnexpected, "failed to scan dataset record", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListPartitions returns the partitions of a dataset.
func (c *SQLiteCatalog) ListPartitions(ctx context.Context, name string) ([]*PartitionRecord, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT dataset_name, value, object_path, row_count, size_bytes
		FROM partitions WHERE dataset_name = ? ORDER BY value`, name)
	if err != nil {
		return nil, qerrors.NewCatalogError(qerrors.CodeUnexpected, "failed to list partitions", err)
	}
	defer rows.Close()

	var out []*PartitionRecord
	for rows.Next() {
		p := &PartitionRecord{}
		if err := rows.Scan(&p.DatasetName, &p.Value, &p.ObjectPath, &p.RowCount, &p.SizeBytes); err != nil {
			return nil, qerrors.NewCatalogError(qerrors.CodeUnexpected, "failed to scan partition record", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RemoveDataset deletes a dataset record and its partition rows.
func (c *SQLiteCatalog) RemoveDataset(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM partitions WHERE dataset_name = ?`, name); err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to delete partition records", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return qerrors.NewCatalogError(qerrors.CodeWriteConflict, "failed to delete dataset record", err)
	}
	return tx.Commit()
}

// Close closes both database connections.
func (c *SQLiteCatalog) Close() error {
	readErr := c.readDB.Close()
	writeErr := c.db.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(s scanner) (*DatasetRecord, error) {
	rec := &DatasetRecord{}
	var schemaJSON string
	var createdAt int64

	err := s.Scan(&rec.Name, &rec.Destination, &rec.PartitionColumn, &schemaJSON,
		&rec.WriteID, &rec.RowCount, &rec.PartitionCount, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(schemaJSON), &rec.Schema); err != nil {
		return nil, fmt.Errorf("malformed schema_json for dataset %q: %w", rec.Name, err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return rec, nil
}
