package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/config"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/csvio"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
)

func exportCSVCmd() *cobra.Command {
	var (
		seller    string
		output    string
		maxPages  int
		userAgent string
	)

	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Export a seller's live Discogs inventory to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if seller == "" {
				seller = cfg.Discogs.Seller
			}
			if cfg.Discogs.Token == "" {
				return fmt.Errorf("discogs token is required: set DISCOGS_TOKEN or discogs.token")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := discogs.NewClient(discogs.Config{
				Token:     cfg.Discogs.Token,
				Seller:    seller,
				UserAgent: userAgent,
				Sort:      "price",
				SortOrder: "asc",
			}, logger)

			n, err := csvio.NewExporter(client, logger).ExportFile(ctx, output, maxPages)
			if err != nil {
				return err
			}

			fmt.Printf("Exported %d listings to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&seller, "seller", "", "Discogs seller username (default: discogs.seller from config)")
	cmd.Flags().StringVar(&output, "output", "discogs_seller_listings.csv", "Output CSV filename")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum number of pages to fetch (0 = all)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "DiscogsSellerExport/1.0", "User agent for API requests")

	return cmd
}
