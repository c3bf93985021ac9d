// Package store provides the in-memory table store: named tables with an
// observable cache flag.
package store

import (
	"sync"

	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/pkg/types"
)

// TableStore registers and retrieves named tables and tracks their cache
// status. All mutations are mutex-guarded; the pipeline itself is a single
// exclusive caller, but the store is safe for concurrent use.
type TableStore struct {
	mu     sync.RWMutex
	tables map[string]*entry
}

type entry struct {
	table  *types.Table
	cached bool
}

// NewTableStore creates an empty table store.
func NewTableStore() *TableStore {
	return &TableStore{
		tables: make(map[string]*entry),
	}
}

// Load registers a table under the given name, replacing any prior table of
// the same name. A replaced table loses its cached flag.
func (s *TableStore) Load(name string, table *types.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = &entry{table: table}
}

// Get retrieves a table by name.
func (s *TableStore) Get(name string) (*types.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tables[name]
	if !ok {
		return nil, qerrors.NewTableNotFound(name)
	}
	return e.table, nil
}

// Cache marks the table as resident. Idempotent: caching an already cached
// table is a no-op. The data is already in memory, so the flag's only
// contract is that subsequent Get calls never touch a backing file.
func (s *TableStore) Cache(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tables[name]
	if !ok {
		return qerrors.NewTableNotFound(name)
	}
	e.cached = true
	return nil
}

// Uncache clears the cached flag. Idempotent.
func (s *TableStore) Uncache(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tables[name]
	if !ok {
		return qerrors.NewTableNotFound(name)
	}
	e.cached = false
	return nil
}

// IsCached reports the cache flag for a table.
func (s *TableStore) IsCached(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tables[name]
	if !ok {
		return false, qerrors.NewTableNotFound(name)
	}
	return e.cached, nil
}

// Names returns the names of all loaded tables.
func (s *TableStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}
