// Package righttrack ties a schedule database to the transit agency it
// describes. An Agency bundles the query layer with the agency's
// metadata and, when one is registered, a realtime station feed
// provider. The manager keeps the database in sync with the remote
// GTFS zip it was loaded from.
package righttrack

import (
	"context"
	"fmt"
	"time"

	"github.com/right-track/right-track-core-sub000/feed"
	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/query"
)

// Agency is a loaded schedule database plus the metadata hosts need to
// present it. Feed is nil for agencies without realtime departures.
type Agency struct {
	ID       string
	Name     string
	Tag      string
	Timezone string

	DB   *query.DB
	Feed feed.Provider
}

// NewAgency builds an Agency around a loaded schedule database. Name
// and timezone come from the feed's own agency record; tag is the
// short code hosts address the agency by.
func NewAgency(ctx context.Context, tag string, db *query.DB) (*Agency, error) {
	agencies, err := db.Agencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("agency %s: %w", tag, err)
	}
	if len(agencies) == 0 {
		return nil, fmt.Errorf("agency %s: schedule database has no agency record", tag)
	}

	a := agencies[0]
	return &Agency{
		ID:       a.ID,
		Name:     a.Name,
		Tag:      tag,
		Timezone: a.Timezone,
		DB:       db,
	}, nil
}

// Location resolves the agency's timezone. Feeds without one run on
// UTC.
func (a *Agency) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("agency %s timezone: %w", a.Tag, err)
	}
	return loc, nil
}

// Now is the current moment on the agency's clock.
func (a *Agency) Now() (gtime.DateTime, error) {
	loc, err := a.Location()
	if err != nil {
		return gtime.DateTime{}, err
	}
	return gtime.FromTime(time.Now().In(loc)), nil
}

// StationFeed returns the realtime departure board for a stop.
// Agencies without a registered provider report feed.ErrNotSupported
// for every stop.
func (a *Agency) StationFeed(ctx context.Context, stopID string, at gtime.DateTime) (*feed.StationFeed, error) {
	if a.Feed == nil {
		return nil, fmt.Errorf("agency %s: %w", a.Tag, feed.ErrNotSupported)
	}
	return a.Feed.StationFeed(ctx, stopID, at)
}

// ClearCache drops the database's memoized results. Call it after the
// underlying store has been reloaded.
func (a *Agency) ClearCache() {
	a.DB.ClearCache()
}
