package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	appLog "ukprayer/internal/log"
	"ukprayer/internal/model"
	"ukprayer/internal/store"
	"ukprayer/internal/timeconv"
)

func newToUTCCmd(flags *rootFlags) *cobra.Command {
	var (
		in   string
		out  string
		year int
	)

	cmd := &cobra.Command{
		Use:   "to-utc",
		Short: "Rewrite a table of UK local clock times into UTC",
		Long: "Reads a prayer table whose times are UK wall-clock times and writes the\n" +
			"same table in UTC, resolving BST per date. This produces the data file\n" +
			"the server expects.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			loc, err := timeconv.LoadZone(cfg.Timezone)
			if err != nil {
				return err
			}
			conv, err := timeconv.NewConverter(loc, cfg.ReferenceYear)
			if err != nil {
				return err
			}

			src, err := os.Open(in)
			if err != nil {
				return err
			}
			defer src.Close()

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := convertToUTC(src, w, conv, year); err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			appLog.Info("table converted to UTC", "in", in, "out", out, "year", year)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Table of local clock times (JSON)")
	cmd.Flags().StringVar(&out, "out", "-", "Destination for the UTC table")
	cmd.Flags().IntVar(&year, "year", 0, "Year the local times were published for (default reference year)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// convertToUTC decodes a local-time table from r and writes its UTC
// rendition to w.
func convertToUTC(r io.Reader, w io.Writer, conv *timeconv.Converter, year int) error {
	s, err := store.Load(r)
	if err != nil {
		return err
	}

	table := make(model.Table, len(s.Available()))
	for _, loc := range s.Available() {
		local, err := s.Year(loc)
		if err != nil {
			return err
		}
		n, err := conv.ToUTC(local, year)
		if err != nil {
			return fmt.Errorf("%s: %w", loc, err)
		}
		table[loc] = n.(model.LocationYear)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(table)
}
