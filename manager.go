package righttrack

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/right-track/right-track-core-sub000/downloader"
	"github.com/right-track/right-track-core-sub000/parse"
	"github.com/right-track/right-track-core-sub000/query"
	"github.com/right-track/right-track-core-sub000/storage"
)

const (
	DefaultRefreshInterval = 12 * time.Hour
	DefaultStaticTimeout   = 60 * time.Second
	DefaultStaticMaxSize   = 800 << 20 // 800 MB
)

// ErrNoFeed means the store has never been loaded from a feed URL.
var ErrNoFeed = errors.New("no feed loaded")

// Feed describes the zip a schedule database was loaded from.
// RetrievedAt is when the current content was downloaded; RefreshedAt
// is when the URL was last checked.
type Feed struct {
	URL         string
	Hash        string
	Headers     map[string]string
	RetrievedAt time.Time
	RefreshedAt time.Time
}

// Manager keeps a schedule database loaded from a remote GTFS zip. A
// load replaces the whole schema, so the store must not serve other
// writers. TimeNow is overridable for tests.
type Manager struct {
	RefreshInterval time.Duration
	Timeout         time.Duration
	MaxSize         int

	// Downloader fetches the zip. Nil means plain HTTP.
	Downloader downloader.Downloader

	TimeNow func() time.Time

	store *storage.SQLStore
	db    *query.DB
}

// NewManager builds a Manager over the store and the query layer that
// reads it. The db's cache is cleared whenever a load replaces the
// store's content.
func NewManager(store *storage.SQLStore, db *query.DB) *Manager {
	return &Manager{
		RefreshInterval: DefaultRefreshInterval,
		Timeout:         DefaultStaticTimeout,
		MaxSize:         DefaultStaticMaxSize,

		store: store,
		db:    db,
	}
}

// Feed reports the zip the store was loaded from, or ErrNoFeed for a
// store that has never been loaded.
func (m *Manager) Feed(ctx context.Context) (*Feed, error) {
	if err := storage.CreateSchema(m.store); err != nil {
		return nil, err
	}

	row, err := m.store.Get(ctx, `
SELECT feed_url, feed_hash, feed_headers, retrieved_at, refreshed_at
FROM rt_feed`)
	if err != nil {
		return nil, fmt.Errorf("reading feed record: %w", err)
	}
	if row == nil {
		return nil, ErrNoFeed
	}

	headers, err := deserializeHeaders(row.String("feed_headers"))
	if err != nil {
		return nil, fmt.Errorf("feed record: %w", err)
	}

	return &Feed{
		URL:         row.String("feed_url"),
		Hash:        row.String("feed_hash"),
		Headers:     headers,
		RetrievedAt: time.Unix(row.Int64("retrieved_at"), 0).UTC(),
		RefreshedAt: time.Unix(row.Int64("refreshed_at"), 0).UTC(),
	}, nil
}

// Load fetches the GTFS zip at feedURL and loads it into the store.
// Content identical to what the store already holds is not reloaded;
// the feed record is marked refreshed and a nil summary is returned.
// headers are sent with the request and recorded for Refresh.
func (m *Manager) Load(ctx context.Context, feedURL string, headers map[string]string) (*parse.Summary, error) {
	body, err := m.fetch(ctx, feedURL, headers)
	if err != nil {
		return nil, fmt.Errorf("downloading feed at %s: %w", feedURL, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(body))
	now := m.now()

	current, err := m.Feed(ctx)
	if err != nil && !errors.Is(err, ErrNoFeed) {
		return nil, err
	}

	w := storage.NewWriter(m.store)
	if current != nil && current.URL == feedURL && current.Hash == hash {
		err := w.WriteFeed(&storage.FeedRecord{
			URL:         feedURL,
			Hash:        hash,
			Headers:     serializeHeaders(headers),
			RetrievedAt: current.RetrievedAt.Unix(),
			RefreshedAt: now.Unix(),
		})
		if err != nil {
			return nil, fmt.Errorf("writing feed record: %w", err)
		}
		return nil, nil
	}

	if err := storage.ResetSchema(m.store); err != nil {
		return nil, err
	}
	// From here the store no longer matches cached results, even if
	// the load fails partway.
	defer m.db.ClearCache()

	sum, err := parse.LoadZip(m.store, body)
	if err != nil {
		return nil, fmt.Errorf("loading feed at %s: %w", feedURL, err)
	}

	err = w.WriteFeed(&storage.FeedRecord{
		URL:         feedURL,
		Hash:        hash,
		Headers:     serializeHeaders(headers),
		RetrievedAt: now.Unix(),
		RefreshedAt: now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("writing feed record: %w", err)
	}

	return sum, nil
}

// Refresh re-fetches the feed the store was loaded from once
// RefreshInterval has passed since the last check. Stores never loaded
// report ErrNoFeed.
func (m *Manager) Refresh(ctx context.Context) error {
	current, err := m.Feed(ctx)
	if err != nil {
		return err
	}
	if m.now().Before(current.RefreshedAt.Add(m.RefreshInterval)) {
		return nil
	}

	_, err = m.Load(ctx, current.URL, current.Headers)
	return err
}

func (m *Manager) fetch(ctx context.Context, feedURL string, headers map[string]string) ([]byte, error) {
	options := downloader.GetOptions{
		Timeout: m.Timeout,
		MaxSize: m.MaxSize,
	}
	if m.Downloader == nil {
		return downloader.HTTPGet(ctx, feedURL, headers, options)
	}
	return m.Downloader.Get(ctx, feedURL, headers, options)
}

func (m *Manager) now() time.Time {
	if m.TimeNow != nil {
		return m.TimeNow()
	}
	return time.Now().UTC()
}

func serializeHeaders(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = url.QueryEscape(k) + "=" + url.QueryEscape(headers[k])
	}
	return strings.Join(pairs, "&")
}

func deserializeHeaders(serialized string) (map[string]string, error) {
	headers := map[string]string{}
	if serialized == "" {
		return headers, nil
	}

	for _, pair := range strings.Split(serialized, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid header pair %q", pair)
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid header pair %q", pair)
		}
		headers[key], err = url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid header pair %q", pair)
		}
	}
	return headers, nil
}
