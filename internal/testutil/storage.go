package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vocab-go/internal/vocab"
)

// CountingStorage wraps a Storage, counts calls per operation and per path,
// and can inject failures.
type CountingStorage struct {
	inner vocab.Storage

	mu     sync.Mutex
	counts map[string]int // op -> calls
	writes map[string]int // path -> writes
	fail   map[string]error
}

var _ vocab.Storage = (*CountingStorage)(nil)

// ErrInjected is the default error returned by FailOn.
var ErrInjected = errors.New("injected storage failure")

func NewCountingStorage(inner vocab.Storage) *CountingStorage {
	return &CountingStorage{
		inner:  inner,
		counts: make(map[string]int),
		writes: make(map[string]int),
		fail:   make(map[string]error),
	}
}

// Count returns how often op ("read", "write", ...) was called.
func (s *CountingStorage) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[op]
}

// Total returns the number of calls of any kind.
func (s *CountingStorage) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Writes returns how often path was written.
func (s *CountingStorage) Writes(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[path]
}

// FailOn makes op fail for every path containing substr. An empty substr
// matches every path. err defaults to ErrInjected.
func (s *CountingStorage) FailOn(op, substr string, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op+"\x00"+substr] = err
}

// Reset clears counters and injected failures.
func (s *CountingStorage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.counts)
	clear(s.writes)
	clear(s.fail)
}

func (s *CountingStorage) record(op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[op]++
	if op == "write" {
		s.writes[path]++
	}
	for key, err := range s.fail {
		fop, substr, _ := strings.Cut(key, "\x00")
		if fop == op && strings.Contains(path, substr) {
			return err
		}
	}
	return nil
}

func (s *CountingStorage) Exists(ctx context.Context, path string) (bool, error) {
	if err := s.record("exists", path); err != nil {
		return false, err
	}
	return s.inner.Exists(ctx, path)
}

func (s *CountingStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := s.record("read", path); err != nil {
		return nil, err
	}
	return s.inner.Read(ctx, path)
}

func (s *CountingStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := s.record("write", path); err != nil {
		return err
	}
	return s.inner.Write(ctx, path, data)
}

func (s *CountingStorage) Delete(ctx context.Context, path string) error {
	if err := s.record("delete", path); err != nil {
		return err
	}
	return s.inner.Delete(ctx, path)
}

func (s *CountingStorage) List(ctx context.Context, dir string) ([]string, error) {
	if err := s.record("list", dir); err != nil {
		return nil, err
	}
	return s.inner.List(ctx, dir)
}

func (s *CountingStorage) EnsureDir(ctx context.Context, dir string) error {
	if err := s.record("ensure_dir", dir); err != nil {
		return err
	}
	return s.inner.EnsureDir(ctx, dir)
}

func (s *CountingStorage) ValidateSetup(ctx context.Context) error {
	if err := s.record("validate", ""); err != nil {
		return err
	}
	return s.inner.ValidateSetup(ctx)
}
