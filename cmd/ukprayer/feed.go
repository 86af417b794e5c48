package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ukprayer/internal/config"
	"ukprayer/internal/ics"
)

func newFeedCmd(flags *rootFlags) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "feed <location>",
		Short: "Write the iCalendar feed for a location to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			if days == 0 {
				days = a.cfg.Feed.WindowDays
			}
			return writeFeed(cmd.OutOrStdout(), a.feed, args[0], days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Number of days in the feed (default from config)")
	return cmd
}

func writeFeed(w io.Writer, gen *ics.Generator, location string, days int) error {
	if days < 1 || days > config.MaxFeedWindowDays {
		return fmt.Errorf("--days must be between 1 and %d", config.MaxFeedWindowDays)
	}
	text, err := gen.Generate(location, days)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}
