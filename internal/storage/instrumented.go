package storage

import (
	"context"
	"errors"
	"time"

	"vocab-go/internal/vocab"
)

// InstrumentedStorage reports the duration and outcome of every call on the
// wrapped Storage to an Observer.
type InstrumentedStorage struct {
	inner    vocab.Storage
	observer Observer
}

var _ vocab.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage wraps inner.
func NewInstrumentedStorage(inner vocab.Storage, observer Observer) *InstrumentedStorage {
	return &InstrumentedStorage{inner: inner, observer: observer}
}

func (s *InstrumentedStorage) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, vocab.ErrNotFound):
		result = "not_found"
	case errors.Is(err, vocab.ErrInvalidInput):
		result = "invalid"
	default:
		result = "error"
	}
	s.observer.ObserveStorageOp(op, result, time.Since(start).Seconds())
}

func (s *InstrumentedStorage) Exists(ctx context.Context, path string) (ok bool, err error) {
	defer func(start time.Time) { s.observe("exists", start, err) }(time.Now())
	return s.inner.Exists(ctx, path)
}

func (s *InstrumentedStorage) Read(ctx context.Context, path string) (data []byte, err error) {
	defer func(start time.Time) { s.observe("read", start, err) }(time.Now())
	return s.inner.Read(ctx, path)
}

func (s *InstrumentedStorage) Write(ctx context.Context, path string, data []byte) (err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())
	return s.inner.Write(ctx, path, data)
}

func (s *InstrumentedStorage) Delete(ctx context.Context, path string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.inner.Delete(ctx, path)
}

func (s *InstrumentedStorage) List(ctx context.Context, dir string) (names []string, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.inner.List(ctx, dir)
}

func (s *InstrumentedStorage) EnsureDir(ctx context.Context, dir string) (err error) {
	defer func(start time.Time) { s.observe("ensure_dir", start, err) }(time.Now())
	return s.inner.EnsureDir(ctx, dir)
}

func (s *InstrumentedStorage) ValidateSetup(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("validate", start, err) }(time.Now())
	return s.inner.ValidateSetup(ctx)
}
