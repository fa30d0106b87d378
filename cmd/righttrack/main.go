package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	righttrack "github.com/right-track/right-track-core-sub000"
	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/query"
	"github.com/right-track/right-track-core-sub000/storage"
)

var rootCmd = &cobra.Command{
	Use:          "righttrack",
	Short:        "Right Track schedule tool",
	Long:         "Loads GTFS feeds into a schedule database and answers trip, stop and search questions against it",
	SilenceUsage: true,
}

var dbPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "righttrack.db", "schedule database file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openDB opens the schedule database and the query layer over it. The
// caller closes the store.
func openDB() (*storage.SQLStore, *query.DB, error) {
	store, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return store, query.New(store), nil
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		k, v, ok := strings.Cut(header, ":")
		if !ok {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return parsed, nil
}

// scheduleTime resolves --date/--at flags against the agency's clock.
// A zero date means today; an empty clock means now on that date, or
// the start of the day when the date lies elsewhere.
func scheduleTime(ctx context.Context, db *query.DB, date int, clock string) (gtime.DateTime, error) {
	a, err := righttrack.NewAgency(ctx, "cli", db)
	if err != nil {
		return gtime.DateTime{}, err
	}
	now, err := a.Now()
	if err != nil {
		return gtime.DateTime{}, err
	}

	if date == 0 {
		date = now.Date()
	}
	if clock == "" {
		if date == now.Date() {
			return now, nil
		}
		return gtime.FromSeconds(0, date)
	}
	return gtime.Parse(clock, date)
}
