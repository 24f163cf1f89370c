package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/config"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/syncer"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the local inventory against the live Discogs listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Discogs.Token == "" {
				return fmt.Errorf("discogs token is required: set DISCOGS_TOKEN or discogs.token")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := storage.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			logger.Info("starting inventory sync",
				zap.String("seller", cfg.Discogs.Seller),
				zap.String("token", discogs.MaskToken(cfg.Discogs.Token)))

			client := discogs.NewClient(discogs.Config{
				Token:     cfg.Discogs.Token,
				Seller:    cfg.Discogs.Seller,
				UserAgent: cfg.Discogs.UserAgent,
			}, logger)

			stats, err := syncer.NewService(client, store, logger).SyncAll(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Sync complete")
			fmt.Printf("  Live listings: %d\n", stats.Total)
			fmt.Printf("  Added:         %d\n", stats.Added)
			fmt.Printf("  Updated:       %d\n", stats.Updated)
			fmt.Printf("  Removed:       %d\n", stats.Removed)
			return nil
		},
	}
}
