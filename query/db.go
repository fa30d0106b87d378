// Package query exposes typed, memoized readers over a schedule
// store. Readers hydrate model values from rows, cache fully-typed
// results keyed by (store id, reader, parameters), and never mutate
// the store.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/right-track/right-track-core-sub000/storage"
)

var (
	// ErrNotFound marks a single-result reader that matched nothing.
	// List readers return empty slices instead.
	ErrNotFound = errors.New("not found")

	// ErrNotSupported marks an operation invoked with an argument the
	// schedule data cannot serve, like the "-1" status sentinel.
	ErrNotSupported = errors.New("not supported")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DB wraps a schedule store with typed readers. All methods are safe
// for concurrent use.
type DB struct {
	store storage.Store
	cache *Cache
}

// Option configures a DB.
type Option func(*DB)

// WithCache shares a cache between several DBs. Entries are keyed by
// store id, so databases never see each other's results.
func WithCache(c *Cache) Option {
	return func(db *DB) {
		db.cache = c
	}
}

// New builds a DB over the store. Unless WithCache is given, the DB
// owns a private cache.
func New(store storage.Store, opts ...Option) *DB {
	db := &DB{store: store}
	for _, opt := range opts {
		opt(db)
	}
	if db.cache == nil {
		db.cache = NewCache()
	}
	return db
}

// Store returns the underlying schedule store.
func (db *DB) Store() storage.Store {
	return db.store
}

// ClearCache drops every cached result for this DB's store. Readers
// in flight complete against the old generation and their results are
// discarded.
func (db *DB) ClearCache() {
	db.cache.Clear()
}

// cached returns the memoized value for key, filling it through fn on
// first use. Concurrent first fills on the same key are coalesced.
// Errors are returned to every waiter and never cached.
func (db *DB) cached(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	full := db.store.ID() + "\x1f" + key
	return db.cache.get(ctx, full, fn)
}

// key builds a cache key from a reader name and its canonical
// parameters.
func key(reader string, params ...any) string {
	var b strings.Builder
	b.WriteString(reader)
	for _, p := range params {
		b.WriteByte('\x1f')
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}

// Cache memoizes typed reader results. There is no eviction; the only
// mutation is Clear, which invalidates every entry atomically by
// advancing a generation counter.
type Cache struct {
	mu   sync.RWMutex
	gen  uint64
	vals map[string]any

	flight singleflight.Group
}

func NewCache() *Cache {
	return &Cache{vals: map[string]any{}}
}

// Clear atomically invalidates all entries. In-flight fills finish
// under their old generation key and are not retained.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.gen++
	c.vals = map[string]any{}
	c.mu.Unlock()
}

func (c *Cache) get(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.RLock()
	gen := c.gen
	v, ok := c.vals[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(fmt.Sprintf("%d\x1f%s", gen, key), func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// A Clear during the fill means the result may describe reloaded
	// data; serve it to the waiters but do not retain it.
	if c.gen == gen {
		c.vals[key] = v
	}
	c.mu.Unlock()

	return v, nil
}
