// Package cache memoizes derived read models such as reports.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear drops every entry
	Clear()
}

// Config sizes a Store.
type Config struct {
	MaxEntries int64
	TTL        time.Duration
}

func DefaultConfig() Config {
	return Config{MaxEntries: 1024, TTL: 5 * time.Minute}
}

// Store is a ristretto-backed Cache that also collapses concurrent loads of
// the same key.
type Store[T any] struct {
	c     *ristretto.Cache[string, T]
	ttl   time.Duration
	group singleflight.Group

	// mu orders Clear against the Set at the end of a load; gen counts Clears.
	mu  sync.Mutex
	gen uint64
}

var _ Cache[int] = (*Store[int])(nil)

func New[T any](cfg Config) (*Store[T], error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	// ristretto keeps entries with a zero TTL forever.
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, T]{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Store[T]{c: c, ttl: cfg.TTL}, nil
}

func (s *Store[T]) Get(key string) (T, bool) {
	return s.c.Get(key)
}

// Set stores data and waits until it is visible to Get.
func (s *Store[T]) Set(key string, data T) {
	s.c.SetWithTTL(key, data, 1, s.ttl)
	s.c.Wait()
}

func (s *Store[T]) Delete(key string) {
	s.c.Del(key)
}

// Clear drops every entry. Loads already in flight still return their
// result to their callers but no longer cache it.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.c.Clear()
}

func (s *Store[T]) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Store[T]) Close() {
	s.c.Close()
}

// GetOrLoad returns the cached value for key, or runs load once for all
// concurrent callers and caches a successful result. A result loaded across
// a Clear is returned but not cached, and callers arriving after the Clear
// start a fresh load.
func (s *Store[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	gen := s.generation()
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	flight := strconv.FormatUint(gen, 10) + "/" + key
	v, err, _ := s.group.Do(flight, func() (any, error) {
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		s.setIfCurrent(gen, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (s *Store[T]) setIfCurrent(gen uint64, key string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.c.SetWithTTL(key, v, 1, s.ttl)
	s.c.Wait()
}
