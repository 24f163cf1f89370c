package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/cart"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/config"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/gemini"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/inventory"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/metrics"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/payment"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/syncer"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/web"
)

const schedulerStopGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			prometheus.MustRegister(metrics.Collectors()...)

			store, err := storage.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			discogsClient := discogs.NewClient(discogs.Config{
				Token:     cfg.Discogs.Token,
				Seller:    cfg.Discogs.Seller,
				UserAgent: cfg.Discogs.UserAgent,
			}, logger)
			geminiClient := gemini.NewClient(cfg.Gemini.APIKey, logger)

			catalog := inventory.NewService(store, discogsClient, geminiClient, cfg.Gemini.EnableOverviews, logger)
			carts := cart.NewService(store)
			syncService := syncer.NewService(discogsClient, store, logger)

			var checkout payment.CheckoutCreator = payment.Disabled{}
			if cfg.Stripe.SecretKey != "" {
				checkout = payment.NewStripeCheckout(cfg.Stripe.SecretKey, logger)
			} else {
				logger.Warn("stripe secret key not set, checkout disabled")
			}

			if cfg.Sync.Auto {
				if cfg.Discogs.Token == "" {
					logger.Warn("discogs token not set, auto-sync disabled")
				} else {
					interval := time.Duration(cfg.Sync.IntervalHours) * time.Hour
					sched := syncer.NewScheduler(syncService, interval, logger)
					sched.Start(ctx)
					defer func() {
						if err := sched.Stop(schedulerStopGrace); err != nil {
							logger.Warn("stopping sync scheduler", zap.Error(err))
						}
					}()
				}
			}

			server := web.NewServer(cfg, store, catalog, carts, checkout, syncService, logger)
			return server.Run(ctx)
		},
	}
}
