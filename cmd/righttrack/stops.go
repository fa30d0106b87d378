package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/query"
)

var stopsCmd = &cobra.Command{
	Use:   "stops",
	Short: "List stops in the schedule",
	Args:  cobra.NoArgs,
	RunE:  runStops,
}

var (
	stopsNear  string
	stopsRoute string
	stopsFeed  bool
	stopsLimit int
)

func init() {
	stopsCmd.Flags().StringVar(&stopsNear, "near", "", "sort by distance from <lat>,<lon>")
	stopsCmd.Flags().StringVar(&stopsRoute, "route", "", "restrict to stops served by a route")
	stopsCmd.Flags().BoolVar(&stopsFeed, "feed", false, "restrict to stops with realtime feed support")
	stopsCmd.Flags().IntVar(&stopsLimit, "limit", 0, "limit the number of stops returned")
	rootCmd.AddCommand(stopsCmd)
}

func runStops(cmd *cobra.Command, args []string) error {
	store, db, err := openDB()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()

	var stops []*model.Stop
	located := false
	switch {
	case stopsNear != "":
		latStr, lonStr, ok := strings.Cut(stopsNear, ",")
		if !ok {
			return fmt.Errorf("'%s' is not on form <lat>,<lon>", stopsNear)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return fmt.Errorf("invalid latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return fmt.Errorf("invalid longitude: %w", err)
		}
		located = true
		stops, err = db.StopsByLocation(ctx, lat, lon, query.LocationFilter{
			Count:   stopsLimit,
			HasFeed: stopsFeed,
			RouteID: stopsRoute,
		})
		if err != nil {
			return err
		}
	case stopsRoute != "":
		stops, err = db.StopsByRoute(ctx, stopsRoute, stopsFeed)
		if err != nil {
			return err
		}
	default:
		stops, err = db.Stops(ctx, stopsFeed)
		if err != nil {
			return err
		}
	}

	if !located && stopsLimit > 0 && len(stops) > stopsLimit {
		stops = stops[:stopsLimit]
	}

	for _, stop := range stops {
		if located {
			fmt.Printf("%s: %s (%.1f mi)\n", stop.ID, stop.Name, stop.Distance)
		} else {
			fmt.Printf("%s: %s\n", stop.ID, stop.Name)
		}
	}
	return nil
}
