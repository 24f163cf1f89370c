package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/config"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			store, err := storage.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			stats, err := store.Stats()
			if err != nil {
				return fmt.Errorf("reading inventory stats: %w", err)
			}
			total, err := store.CountListings(false)
			if err != nil {
				return fmt.Errorf("counting listings: %w", err)
			}

			fmt.Println("Inventory")
			fmt.Printf("  Database:        %s\n", cfg.DatabasePath)
			fmt.Printf("  Active listings: %d\n", stats.TotalListings)
			fmt.Printf("  Total rows:      %d\n", total)
			if stats.LastUpdated != nil {
				fmt.Printf("  Last updated:    %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05 MST"))
			} else {
				fmt.Println("  Last updated:    never")
			}

			fmt.Println("Configuration")
			fmt.Printf("  Port:           %d\n", cfg.Port)
			fmt.Printf("  Seller:         %s\n", cfg.Discogs.Seller)
			fmt.Printf("  Discogs token:  %s\n", discogs.MaskToken(cfg.Discogs.Token))
			fmt.Printf("  Auto sync:      %s\n", onOff(cfg.Sync.Auto))
			fmt.Printf("  AI overviews:   %s\n", onOff(cfg.Gemini.EnableOverviews && cfg.Gemini.APIKey != ""))
			fmt.Printf("  Stripe:         %s\n", onOff(cfg.Stripe.SecretKey != ""))
			fmt.Printf("  Admin panel:    %s\n", onOff(cfg.Admin.PasswordHash != ""))
			return nil
		},
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
