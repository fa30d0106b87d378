package downloader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Filesystem caches fetched files in a single JSON records file, so
// cached content survives process restarts. Suited to CLI use, where
// every invocation is a fresh process.
type Filesystem struct {
	path    string
	mu      sync.Mutex
	records map[string]fsRecord

	// TimeNow is the cache's clock. Tests override it.
	TimeNow func() time.Time
}

type fsRecord struct {
	Body        string    `json:"body"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// NewFilesystem opens the records file at path, creating it lazily on
// the first cached fetch.
func NewFilesystem(path string) (*Filesystem, error) {
	f := &Filesystem{
		path:    path,
		records: map[string]fsRecord{},
		TimeNow: time.Now,
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filesystem) Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	if options.Cache {
		f.mu.Lock()
		record, ok := f.records[url]
		f.mu.Unlock()
		if ok && record.RetrievedAt.Add(options.CacheTTL).After(f.TimeNow()) {
			body, err := base64.StdEncoding.DecodeString(record.Body)
			if err != nil {
				return nil, fmt.Errorf("decoding cached body: %w", err)
			}
			return body, nil
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.records[url] = fsRecord{
			Body:        base64.StdEncoding.EncodeToString(body),
			RetrievedAt: f.TimeNow().UTC(),
		}
		if err := f.save(); err != nil {
			return nil, err
		}
	}

	return body, nil
}

func (f *Filesystem) load() error {
	buf, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache file: %w", err)
	}
	if err := json.Unmarshal(buf, &f.records); err != nil {
		return fmt.Errorf("unmarshalling cache file: %w", err)
	}
	return nil
}

// save writes the records file. Callers hold the mutex.
func (f *Filesystem) save() error {
	buf, err := json.Marshal(f.records)
	if err != nil {
		return fmt.Errorf("marshalling cache: %w", err)
	}
	if err := os.WriteFile(f.path, buf, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}
