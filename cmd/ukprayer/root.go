package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ukprayer/internal/config"
	"ukprayer/internal/ics"
	appLog "ukprayer/internal/log"
	"ukprayer/internal/store"
	"ukprayer/internal/timeconv"
)

type rootFlags struct {
	configPath string
	debug      bool
	console    bool
}

// app is everything a subcommand needs once config and table are loaded.
type app struct {
	cfg   *config.Config
	store *store.Store
	conv  *timeconv.Converter
	feed  *ics.Generator
}

func newRootCmd(version string) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "ukprayer",
		Short:         "UK prayer times service",
		Long:          "Serves UK prayer times in local clock time over HTTP and as an iCalendar feed.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			appLog.SetOutput(os.Stderr, flags.console)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "/etc/ukprayer/config.yaml", "Path to config file")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging and gin debug mode")
	pf.BoolVar(&flags.console, "console", false, "Human-readable log output instead of JSON")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newFeedCmd(flags))
	rootCmd.AddCommand(newToUTCCmd(flags))
	rootCmd.AddCommand(newLocationsCmd())

	return rootCmd
}

// loadConfig reads the config file and applies the log level.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

// loadApp loads config and table and builds the converter and feed
// generator. A malformed table is fatal here rather than at request time.
func loadApp(flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	loc, err := timeconv.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	conv, err := timeconv.NewConverter(loc, cfg.ReferenceYear)
	if err != nil {
		return nil, err
	}

	s, err := store.LoadFile(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("load prayer table: %w", err)
	}

	gen, err := ics.NewGenerator(s, conv, cfg.Feed, nil)
	if err != nil {
		return nil, err
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"data_file", cfg.DataFile,
		"reference_year", cfg.ReferenceYear,
		"locations", len(s.Available()),
		"feed_window_days", cfg.Feed.WindowDays,
		"feed_refresh", cfg.Feed.Refresh,
		"metrics", cfg.Metrics,
	)
	return &app{cfg: cfg, store: s, conv: conv, feed: gen}, nil
}

func newLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List supported location slugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, slug := range store.Locations {
				if _, err := fmt.Fprintf(out, "%-16s %s\n", slug, store.DisplayName(slug)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
