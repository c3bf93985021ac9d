package dataset

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/arkilian/quarry/internal/storage"
)

// keyPrefixStore is an in-memory ObjectStorage with S3 key semantics:
// ListObjects and DeletePrefix match raw key prefixes with no notion of
// directory boundaries, so "sales" is a prefix of "sales_backup/...".
type keyPrefixStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newKeyPrefixStore() *keyPrefixStore {
	return &keyPrefixStore{objects: make(map[string][]byte)}
}

func (s *keyPrefixStore) PutObject(ctx context.Context, objectPath string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[objectPath] = cp
	return nil
}

func (s *keyPrefixStore) GetObject(ctx context.Context, objectPath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectPath]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (s *keyPrefixStore) Delete(ctx context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectPath)
	return nil
}

func (s *keyPrefixStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}

func (s *keyPrefixStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectPath]
	return ok, nil
}

func (s *keyPrefixStore) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
