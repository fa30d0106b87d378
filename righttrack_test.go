package righttrack_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	righttrack "github.com/right-track/right-track-core-sub000"
	"github.com/right-track/right-track-core-sub000/feed"
	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/query"
	"github.com/right-track/right-track-core-sub000/storage"
	"github.com/right-track/right-track-core-sub000/testutil"
)

type stubProvider struct {
	stopID string
	at     gtime.DateTime
	fd     *feed.StationFeed
}

func (p *stubProvider) StationFeed(ctx context.Context, stopID string, at gtime.DateTime) (*feed.StationFeed, error) {
	p.stopID = stopID
	p.at = at
	return p.fd, nil
}

func TestNewAgency(t *testing.T) {
	db := testutil.BuildDB(t, map[string][]string{})

	a, err := righttrack.NewAgency(context.Background(), "rtt", db)
	require.NoError(t, err)
	assert.Equal(t, "rt", a.ID)
	assert.Equal(t, "Right Track Transit", a.Name)
	assert.Equal(t, "rtt", a.Tag)
	assert.Equal(t, "America/New_York", a.Timezone)

	loc, err := a.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	now, err := a.Now()
	require.NoError(t, err)
	assert.NoError(t, gtime.ValidDate(now.Date()))
}

func TestNewAgencyEmptyDatabase(t *testing.T) {
	store := testutil.OpenStore(t)
	require.NoError(t, storage.CreateSchema(store))

	_, err := righttrack.NewAgency(context.Background(), "rtt", query.New(store))
	assert.ErrorContains(t, err, "no agency record")
}

func TestAgencyStationFeed(t *testing.T) {
	db := testutil.BuildDB(t, map[string][]string{})
	a, err := righttrack.NewAgency(context.Background(), "rtt", db)
	require.NoError(t, err)

	when, err := gtime.Parse("08:55:00", 20240305)
	require.NoError(t, err)

	// No provider registered.
	_, err = a.StationFeed(context.Background(), "aaa", when)
	assert.ErrorIs(t, err, feed.ErrNotSupported)

	// A registered provider gets the call as-is.
	want := &feed.StationFeed{}
	stub := &stubProvider{fd: want}
	a.Feed = stub

	got, err := a.StationFeed(context.Background(), "bbb", when)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, "bbb", stub.stopID)
	assert.True(t, when.Equal(stub.at))
}
