package storage

import (
	"context"
	"slices"

	"github.com/coocood/freecache"

	"vocab-go/internal/vocab"
)

// Observer receives storage-level measurements. Implemented by the
// prometheus metrics of the app; NopObserver discards them.
type Observer interface {
	ObserveStorageOp(op, result string, seconds float64)
	IncCacheHit()
	IncCacheMiss()
}

// NopObserver discards every measurement.
type NopObserver struct{}

func (NopObserver) ObserveStorageOp(string, string, float64) {}
func (NopObserver) IncCacheHit()                             {}
func (NopObserver) IncCacheMiss()                            {}

// CachedStorage is a read-through cache of object bodies in front of another
// Storage. Writes update the cache, deletes evict from it. Entries expire
// after ttlSeconds so changes made by other processes become visible.
type CachedStorage struct {
	inner    vocab.Storage
	cache    *freecache.Cache
	ttl      int
	observer Observer
}

var _ vocab.Storage = (*CachedStorage)(nil)

// NewCachedStorage wraps inner with a cache of sizeMB megabytes.
func NewCachedStorage(inner vocab.Storage, sizeMB, ttlSeconds int, observer Observer) *CachedStorage {
	if observer == nil {
		observer = NopObserver{}
	}
	return &CachedStorage{
		inner:    inner,
		cache:    freecache.NewCache(max(sizeMB, 1) * 1024 * 1024),
		ttl:      max(ttlSeconds, 0),
		observer: observer,
	}
}

func (s *CachedStorage) cacheKey(path string) ([]byte, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	return []byte(p), nil
}

func (s *CachedStorage) Exists(ctx context.Context, path string) (bool, error) {
	key, err := s.cacheKey(path)
	if err != nil {
		return false, err
	}
	if _, err := s.cache.Get(key); err == nil {
		return true, nil
	}
	return s.inner.Exists(ctx, path)
}

func (s *CachedStorage) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := s.cacheKey(path)
	if err != nil {
		return nil, err
	}
	if data, err := s.cache.Get(key); err == nil {
		s.observer.IncCacheHit()
		return data, nil
	}
	s.observer.IncCacheMiss()

	data, err := s.inner.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	// Entries larger than the cache allows are simply not cached.
	_ = s.cache.Set(key, data, s.ttl)
	return slices.Clone(data), nil
}

func (s *CachedStorage) Write(ctx context.Context, path string, data []byte) error {
	key, err := s.cacheKey(path)
	if err != nil {
		return err
	}
	if err := s.inner.Write(ctx, path, data); err != nil {
		s.cache.Del(key)
		return err
	}
	if err := s.cache.Set(key, data, s.ttl); err != nil {
		s.cache.Del(key)
	}
	return nil
}

func (s *CachedStorage) Delete(ctx context.Context, path string) error {
	key, err := s.cacheKey(path)
	if err != nil {
		return err
	}
	s.cache.Del(key)
	return s.inner.Delete(ctx, path)
}

func (s *CachedStorage) List(ctx context.Context, dir string) ([]string, error) {
	return s.inner.List(ctx, dir)
}

func (s *CachedStorage) EnsureDir(ctx context.Context, dir string) error {
	return s.inner.EnsureDir(ctx, dir)
}

func (s *CachedStorage) ValidateSetup(ctx context.Context) error {
	return s.inner.ValidateSetup(ctx)
}
