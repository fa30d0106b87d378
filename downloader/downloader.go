// Package downloader fetches remote files over HTTP, with optional
// caching. Schedule zips and realtime feeds both come through the
// Downloader interface, so hosts can swap in their own transport or
// cache.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GetOptions bounds a single fetch.
type GetOptions struct {
	// MaxSize caps the response body in bytes. Larger bodies fail
	// rather than truncate. Zero means no cap.
	MaxSize int

	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration

	// Cache, together with CacheTTL, lets a caching Downloader
	// serve a previously fetched body.
	Cache    bool
	CacheTTL time.Duration
}

// Downloader fetches a URL, optionally serving cached content.
type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

// HTTPGet fetches a URL with no caching. Caching Downloaders use it
// for their misses.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if options.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, int64(options.MaxSize)+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if options.MaxSize > 0 && len(body) > options.MaxSize {
		return nil, fmt.Errorf("%s: body exceeds %d bytes", url, options.MaxSize)
	}

	return body, nil
}
