package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/query"
)

var tripCmd = &cobra.Command{
	Use:   "trip <id|short name>",
	Short: "Show a trip's stop times",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrip,
}

var tripDate int

func init() {
	tripCmd.Flags().IntVar(&tripDate, "date", 0, "service date as YYYYMMDD (default today)")
	rootCmd.AddCommand(tripCmd)
}

func runTrip(cmd *cobra.Command, args []string) error {
	store, db, err := openDB()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()

	when, err := scheduleTime(ctx, db, tripDate, "")
	if err != nil {
		return err
	}
	date := when.Date()

	trip, err := db.Trip(ctx, args[0], date)
	if errors.Is(err, query.ErrNotFound) {
		trip, err = db.TripByShortName(ctx, args[0], date)
	}
	if err != nil {
		return err
	}

	route := ""
	if trip.Route != nil {
		route = trip.Route.ShortName
		if route == "" {
			route = trip.Route.LongName
		}
	}
	headsign := trip.Headsign
	if headsign == "" {
		if dest := trip.Destination(); dest != nil {
			headsign = dest.Stop.Name
		}
	}
	peak := ""
	if trip.Peak {
		peak = " (peak)"
	}
	fmt.Printf("trip %s on %s toward %s, %s%s\n", trip.ID, route, headsign, when.DateString(), peak)

	for _, st := range trip.StopTimes {
		mark := " "
		switch {
		case st.Pickup == model.PickupNone && st.DropOff == model.DropOffNone:
			mark = "x"
		case st.Pickup == model.PickupNone:
			mark = "d" // drop-off only
		case st.DropOff == model.DropOffNone:
			mark = "p" // pickup only
		}
		fmt.Printf("%3d %s %9s  %s\n", st.Sequence, mark, st.Departure.String12(), st.Stop.Name)
	}
	return nil
}
