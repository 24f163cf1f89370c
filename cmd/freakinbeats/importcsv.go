package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/config"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/csvio"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

func importCSVCmd() *cobra.Command {
	var (
		file  string
		clear bool
	)

	cmd := &cobra.Command{
		Use:   "import-csv",
		Short: "Import a Discogs seller export CSV into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			if file == "" {
				file, err = csvio.FindLatest(cfg.Ingest.Dir, cfg.Ingest.CSVPattern)
				if err != nil {
					return err
				}
			}

			store, err := storage.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			stats, err := csvio.NewImporter(store, logger).ImportFile(file, clear)
			if err != nil {
				return err
			}

			fmt.Printf("Import of %s complete\n", file)
			fmt.Printf("  Total rows: %d\n", stats.TotalRows)
			fmt.Printf("  Imported:   %d\n", stats.Imported)
			fmt.Printf("  Updated:    %d\n", stats.Updated)
			fmt.Printf("  Skipped:    %d\n", stats.Skipped)
			fmt.Printf("  Errors:     %d\n", stats.Errors)

			if stats.Errors > 0 {
				return fmt.Errorf("import finished with %d errors", stats.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file to import (default: newest match in the ingest dir)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Empty the listings table before importing")

	return cmd
}
