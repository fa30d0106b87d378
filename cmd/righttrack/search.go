package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/right-track/right-track-core-sub000/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <origin> <destination>",
	Short: "Plan trips between two stops",
	Args:  cobra.ExactArgs(2),
	RunE:  runSearch,
}

var (
	searchDate        int
	searchAt          string
	searchTransfers   int
	searchPre         int
	searchPost        int
	searchMinLayover  int
	searchMaxLayover  int
	searchNoTransfers bool
)

func init() {
	defaults := search.DefaultOptions()
	searchCmd.Flags().IntVar(&searchDate, "date", 0, "departure date as YYYYMMDD (default today)")
	searchCmd.Flags().StringVar(&searchAt, "at", "", "departure time, e.g. 08:55 or 8:55 AM (default now)")
	searchCmd.Flags().IntVar(&searchTransfers, "transfers", defaults.MaxTransfers, "maximum trip changes per result")
	searchCmd.Flags().IntVar(&searchPre, "pre", defaults.PreDepartureHours, "hours before departure to include")
	searchCmd.Flags().IntVar(&searchPost, "post", defaults.PostDepartureHours, "hours after departure to include")
	searchCmd.Flags().IntVar(&searchMinLayover, "min-layover", defaults.MinLayoverMins, "minimum transfer wait in minutes")
	searchCmd.Flags().IntVar(&searchMaxLayover, "max-layover", defaults.MaxLayoverMins, "maximum transfer wait in minutes")
	searchCmd.Flags().BoolVar(&searchNoTransfers, "no-transfers", false, "direct trips only")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	store, db, err := openDB()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()

	departure, err := scheduleTime(ctx, db, searchDate, searchAt)
	if err != nil {
		return err
	}

	opts := search.DefaultOptions()
	opts.MaxTransfers = searchTransfers
	opts.PreDepartureHours = searchPre
	opts.PostDepartureHours = searchPost
	opts.MinLayoverMins = searchMinLayover
	opts.MaxLayoverMins = searchMaxLayover
	if searchNoTransfers {
		opts.AllowTransfers = false
	}

	results, err := search.Search(ctx, db, args[0], args[1], departure, opts)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no trips found")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d) %s  %s -> %s, %s",
			i+1,
			r.Origin().Departure.DateString(),
			r.Origin().Departure.String12(),
			r.Destination().Arrival.String12(),
			r.TravelTime(),
		)
		if n := len(r.Transfers); n == 1 {
			fmt.Printf(", 1 transfer")
		} else if n > 1 {
			fmt.Printf(", %d transfers", n)
		}
		fmt.Println()

		for _, seg := range r.Segments {
			name := seg.Trip.ShortName
			if name == "" {
				name = seg.Trip.ID
			}
			fmt.Printf("   %s: %s %s -> %s %s\n",
				name,
				seg.Enter.Departure.String12(), seg.Enter.Stop.Name,
				seg.Exit.Arrival.String12(), seg.Exit.Stop.Name,
			)
		}
		for _, tr := range r.Transfers {
			fmt.Printf("   change at %s, %s layover\n", tr.Stop.Name, tr.Layover())
		}
	}
	return nil
}
