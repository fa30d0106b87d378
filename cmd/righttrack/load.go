package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	righttrack "github.com/right-track/right-track-core-sub000"
	"github.com/right-track/right-track-core-sub000/parse"
	"github.com/right-track/right-track-core-sub000/storage"
)

var loadCmd = &cobra.Command{
	Use:   "load <gtfs.zip|url>",
	Short: "Load a GTFS feed into the schedule database",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var loadHeaders []string

func init() {
	loadCmd.Flags().StringSliceVar(&loadHeaders, "header", nil, "HTTP header as <key>:<value>")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	src := args[0]

	store, db, err := openDB()
	if err != nil {
		return err
	}
	defer store.Close()

	var sum *parse.Summary
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		headers, err := parseHeaders(loadHeaders)
		if err != nil {
			return err
		}
		sum, err = righttrack.NewManager(store, db).Load(cmd.Context(), src, headers)
		if err != nil {
			return err
		}
		if sum == nil {
			fmt.Println("feed unchanged")
			return nil
		}
	} else {
		if err := storage.ResetSchema(store); err != nil {
			return err
		}
		sum, err = parse.LoadFile(store, src)
		if err != nil {
			return err
		}
	}

	fmt.Printf("loaded %d routes, %d stops, %d trips, %d stop times\n",
		sum.Routes, sum.Stops, sum.Trips, sum.StopTimes)
	fmt.Printf("calendar %d through %d\n", sum.StartDate, sum.EndDate)
	return nil
}
