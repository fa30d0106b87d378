package downloader

import (
	"context"
	"sync"
	"time"
)

// Memory caches fetched files in process memory.
type Memory struct {
	mu    sync.Mutex
	cache map[string]memoryEntry

	// TimeNow is the cache's clock. Tests override it.
	TimeNow func() time.Time
}

type memoryEntry struct {
	body    []byte
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{
		cache:   map[string]memoryEntry{},
		TimeNow: time.Now,
	}
}

// Get serves a cached body while it is fresh, fetching otherwise.
// The fetch runs unlocked, so concurrent misses on one URL may fetch
// more than once; the last result wins.
func (m *Memory) Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	if options.Cache {
		m.mu.Lock()
		entry, ok := m.cache[url]
		m.mu.Unlock()
		if ok && entry.expires.After(m.TimeNow()) {
			return entry.body, nil
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		m.mu.Lock()
		m.cache[url] = memoryEntry{
			body:    body,
			expires: m.TimeNow().Add(options.CacheTTL),
		}
		m.mu.Unlock()
	}

	return body, nil
}
