package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingServer serves body and counts requests.
func countingServer(t *testing.T, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	hits := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestHTTPGet(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	body, err := HTTPGet(context.Background(), srv.URL, map[string]string{"X-Api-Key": "sekrit"}, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "sekrit", gotHeader)
}

func TestHTTPGetErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			w.Write([]byte("0123456789"))
		}
	}))
	defer srv.Close()

	_, err := HTTPGet(context.Background(), srv.URL+"/missing", nil, GetOptions{})
	assert.ErrorContains(t, err, "status 404")

	// Body larger than the cap fails rather than truncates.
	_, err = HTTPGet(context.Background(), srv.URL, nil, GetOptions{MaxSize: 5})
	assert.ErrorContains(t, err, "exceeds")

	// Body exactly at the cap is fine.
	body, err := HTTPGet(context.Background(), srv.URL, nil, GetOptions{MaxSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))
}

func TestMemoryCaching(t *testing.T) {
	srv, hits := countingServer(t, "payload")

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.TimeNow = func() time.Time { return now }

	opts := GetOptions{Cache: true, CacheTTL: time.Minute}

	body, err := m.Get(context.Background(), srv.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, int64(1), hits.Load())

	// Fresh entry served from cache.
	_, err = m.Get(context.Background(), srv.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	// Expired entry fetched again.
	now = now.Add(2 * time.Minute)
	_, err = m.Get(context.Background(), srv.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())

	// Cache disabled always fetches.
	_, err = m.Get(context.Background(), srv.URL, nil, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Load())
}

func TestFilesystemPersists(t *testing.T) {
	srv, hits := countingServer(t, "payload")
	path := filepath.Join(t.TempDir(), "cache.json")

	opts := GetOptions{Cache: true, CacheTTL: time.Hour}

	f1, err := NewFilesystem(path)
	require.NoError(t, err)
	body, err := f1.Get(context.Background(), srv.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, int64(1), hits.Load())

	// A fresh instance over the same records file serves the cached
	// body without touching the server.
	f2, err := NewFilesystem(path)
	require.NoError(t, err)
	body, err = f2.Get(context.Background(), srv.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, int64(1), hits.Load())

	// Expiry forces a refetch.
	f2.TimeNow = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f2.Get(context.Background(), srv.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}
