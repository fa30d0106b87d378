package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/query"
)

func serviceIDs(services []*model.Service) []string {
	out := make([]string, len(services))
	for i, s := range services {
		out[i] = s.ID
	}
	return out
}

func TestService(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	weekday, err := db.Service(ctx, "weekday")
	require.NoError(t, err)
	assert.True(t, weekday.RunsOn(time.Tuesday))
	assert.False(t, weekday.RunsOn(time.Saturday))
	assert.Equal(t, 20240101, weekday.StartDate)
	assert.Equal(t, 20241231, weekday.EndDate)
	require.Len(t, weekday.Exceptions, 1)
	assert.Equal(t, 20240115, weekday.Exceptions[0].Date)
	assert.Equal(t, model.ServiceRemoved, weekday.Exceptions[0].Type)

	_, err = db.Service(ctx, "nope")
	assert.ErrorIs(t, err, query.ErrNotFound)
}

func TestServiceExceptionOnly(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	// No calendar row: the service spans its exception dates and
	// never runs by weekday.
	special, err := db.Service(ctx, "special")
	require.NoError(t, err)
	assert.Equal(t, 20240704, special.StartDate)
	assert.Equal(t, 20240704, special.EndDate)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		assert.False(t, special.RunsOn(wd))
	}
	require.Len(t, special.Exceptions, 1)
	assert.Equal(t, model.ServiceAdded, special.Exceptions[0].Type)
}

func TestServicesDefault(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	// A regular Tuesday.
	tue, err := db.ServicesDefault(ctx, 20240305)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekday"}, serviceIDs(tue))

	sat, err := db.ServicesDefault(ctx, 20240309)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekend"}, serviceIDs(sat))

	// Defaults ignore exceptions: MLK day still lists weekday.
	mlk, err := db.ServicesDefault(ctx, 20240115)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekday"}, serviceIDs(mlk))

	_, err = db.ServicesDefault(ctx, 20240230)
	assert.Error(t, err)
}

func TestServicesEffective(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	tue, err := db.ServicesEffective(ctx, 20240305)
	require.NoError(t, err)
	assert.Equal(t, []string{"weekday"}, serviceIDs(tue))

	// Removal exception empties the holiday Monday.
	mlk, err := db.ServicesEffective(ctx, 20240115)
	require.NoError(t, err)
	assert.Empty(t, mlk)

	// Addition exception joins the default weekday service.
	july4, err := db.ServicesEffective(ctx, 20240704)
	require.NoError(t, err)
	assert.Equal(t, []string{"special", "weekday"}, serviceIDs(july4))

	ids, err := db.ServiceIDsEffective(ctx, 20240704)
	require.NoError(t, err)
	assert.Equal(t, []string{"special", "weekday"}, ids)
}

func TestServiceExceptions(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	exceptions, err := db.ServiceExceptions(ctx, 20240115)
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "weekday", exceptions[0].ServiceID)
	assert.Equal(t, model.ServiceRemoved, exceptions[0].Type)

	none, err := db.ServiceExceptions(ctx, 20240305)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServices(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	services, err := db.Services(ctx, []string{"weekend", "weekday"})
	require.NoError(t, err)
	assert.Equal(t, []string{"weekend", "weekday"}, serviceIDs(services))

	_, err = db.Services(ctx, []string{"weekday", "nope"})
	assert.ErrorIs(t, err, query.ErrNotFound)
}

func TestHolidays(t *testing.T) {
	db := fixtureDB(t)
	ctx := context.Background()

	mlk, err := db.Holiday(ctx, 20240115)
	require.NoError(t, err)
	assert.Equal(t, "MLK Day", mlk.Name)
	assert.False(t, mlk.Peak)
	assert.Equal(t, "Weekend schedule", mlk.ServiceInfo)

	_, err = db.Holiday(ctx, 20240305)
	assert.ErrorIs(t, err, query.ErrNotFound)

	is, err := db.IsHoliday(ctx, 20240115)
	require.NoError(t, err)
	assert.True(t, is)
	is, err = db.IsHoliday(ctx, 20240305)
	require.NoError(t, err)
	assert.False(t, is)

	all, err := db.Holidays(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 20240115, all[0].Date)
	assert.Equal(t, 20241224, all[1].Date)
}
