package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	righttrack "github.com/right-track/right-track-core-sub000"
	"github.com/right-track/right-track-core-sub000/downloader"
	"github.com/right-track/right-track-core-sub000/feed/gtfsrt"
)

var boardCmd = &cobra.Command{
	Use:   "board <stop>",
	Short: "Show the departure board for a stop",
	Long:  "Shows upcoming departures from a stop. With realtime URLs the board carries live delays and cancellations; without them it is the plain schedule.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoard,
}

var (
	boardURLs    []string
	boardHeaders []string
	boardWindow  time.Duration
	boardLimit   int
	boardCache   string
)

func init() {
	boardCmd.Flags().StringSliceVar(&boardURLs, "realtime-url", nil, "GTFS Realtime TripUpdates URL")
	boardCmd.Flags().StringSliceVar(&boardHeaders, "realtime-header", nil, "realtime HTTP header as <key>:<value>")
	boardCmd.Flags().DurationVar(&boardWindow, "window", gtfsrt.DefaultHorizon, "how far ahead to list departures")
	boardCmd.Flags().IntVar(&boardLimit, "limit", 0, "limit the number of departures returned")
	boardCmd.Flags().StringVar(&boardCache, "cache", "", "cache realtime payloads in this file")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	store, db, err := openDB()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()

	agency, err := righttrack.NewAgency(ctx, "cli", db)
	if err != nil {
		return err
	}

	headers, err := parseHeaders(boardHeaders)
	if err != nil {
		return err
	}

	var dl downloader.Downloader
	if boardCache != "" {
		dl, err = downloader.NewFilesystem(boardCache)
		if err != nil {
			return fmt.Errorf("creating realtime cache: %w", err)
		}
	}

	provider := gtfsrt.New(db, dl, boardURLs...)
	provider.Headers = headers
	provider.Horizon = boardWindow
	provider.Limit = boardLimit
	if boardCache != "" {
		provider.CacheTTL = time.Minute
	}
	agency.Feed = provider

	now, err := agency.Now()
	if err != nil {
		return err
	}
	board, err := agency.StationFeed(ctx, args[0], now)
	if err != nil {
		return err
	}

	fmt.Printf("%s departures from %s\n", board.Stop.Name, now.String12())
	if !board.UpdatedAt.IsZero() {
		fmt.Printf("realtime data as of %s\n", board.UpdatedAt.Format(time.RFC3339))
	}
	for _, d := range board.Departures {
		track := ""
		if d.Position != nil && d.Position.Track != "" {
			track = "  track " + d.Position.Track
		}
		fmt.Printf("%9s  %-20s %s%s\n", d.Estimated.String12(), d.Headsign, d.Status, track)
	}
	return nil
}
