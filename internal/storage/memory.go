package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"vocab-go/internal/vocab"
)

// MemoryStorage is an in-memory implementation of vocab.Storage.
// Useful for tests and ephemeral runs. Safe for concurrent use.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ vocab.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Exists(_ context.Context, path string) (bool, error) {
	p, err := CleanPath(path)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[p]
	return ok, nil
}

func (s *MemoryStorage) Read(_ context.Context, path string) ([]byte, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[p]
	if !ok {
		return nil, vocab.NotFound("read", "object %q not found", p)
	}
	return slices.Clone(data), nil
}

func (s *MemoryStorage) Write(_ context.Context, path string, data []byte) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[p] = slices.Clone(data)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, path string) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, p)
	return nil
}

// List derives children from stored keys: an object "a/b/c" makes "b" a
// child of "a".
func (s *MemoryStorage) List(_ context.Context, dir string) ([]string, error) {
	d, err := cleanDir(dir)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if d != "" {
		prefix = d + "/"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	names := []string{}
	for key := range s.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStorage) EnsureDir(_ context.Context, dir string) error {
	_, err := cleanDir(dir)
	return err
}

func (s *MemoryStorage) ValidateSetup(context.Context) error { return nil }

// Len returns the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
