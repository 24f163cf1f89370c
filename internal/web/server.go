package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/cart"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/config"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/inventory"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/payment"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/syncer"
)

const shutdownGrace = 10 * time.Second

// Catalog is the inventory surface the handlers use.
type Catalog interface {
	AllItems() ([]*storage.Listing, error)
	ItemByListingID(listingID string) (*storage.Listing, error)
	ItemWithVideos(ctx context.Context, listingID string) (*inventory.Item, error)
	ItemWithVideosByID(ctx context.Context, id int64) (*inventory.Item, error)
	Search(query, artist, genre, format string) ([]*storage.Listing, error)
	Filter(p storage.FilterParams) ([]*storage.Listing, error)
	Facets() (*storage.Facets, error)
	Stats() (*storage.Stats, error)
	SoftDelete(listingID string) (bool, error)
	Restore(listingID string) (bool, error)
	MarkSold(listingID string) (bool, error)
}

// CartService validates carts for the checkout endpoints.
type CartService interface {
	ValidateCart(items []cart.RawItem) *cart.Validation
	StripeLines(items []cart.RawItem) (*cart.StripeCart, error)
}

// SyncRunner triggers a one-off inventory reconciliation.
type SyncRunner interface {
	SyncAll(ctx context.Context) (*syncer.Stats, error)
}

// Server is the storefront web server
type Server struct {
	cfg      *config.Config
	store    *storage.Store
	catalog  Catalog
	carts    CartService
	checkout payment.CheckoutCreator
	sync     SyncRunner
	logger   *zap.Logger
	router   *gin.Engine
	srv      *http.Server
}

// NewServer creates the web server and registers all routes
func NewServer(cfg *config.Config, store *storage.Store, catalog Catalog, carts CartService, checkout payment.CheckoutCreator, sync SyncRunner, logger *zap.Logger) *Server {
	router := gin.New()

	s := &Server{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		carts:    carts,
		checkout: checkout,
		sync:     sync,
		logger:   logger,
		router:   router,
	}

	router.Use(gin.Recovery())
	router.Use(s.accessLogMiddleware())
	router.Use(metricsMiddleware())

	router.SetHTMLTemplate(loadTemplates())
	router.StaticFS("/static", staticHTTPFS())

	// Pages
	router.GET("/", s.handleIndex)
	router.GET("/cart", s.handleCartPage)
	router.GET("/detail/:listing_id", s.handleDetailPage)
	router.GET("/checkout/success", s.handleSuccessPage)
	router.GET("/admin/login", s.handleAdminLoginPage)
	router.GET("/admin", s.handleAdminPage)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API
	api := router.Group("/api")
	{
		api.GET("/data", s.handleAPIData)
		api.GET("/items/:listing_id", s.handleAPIItem)
		api.GET("/item/id/:id", s.handleAPIItemByID)
		api.GET("/search", s.handleAPISearch)
		api.GET("/filter", s.handleAPIFilter)
		api.GET("/facets", s.handleAPIFacets)
		api.GET("/stats", s.handleAPIStats)
		api.POST("/cart/validate", s.handleAPICartValidate)
		api.POST("/checkout/session", s.handleAPICheckoutSession)
	}

	// Admin API
	admin := router.Group("/admin/api")
	admin.POST("/login", s.handleAdminLogin)
	admin.POST("/logout", s.handleAdminLogout)

	authed := admin.Group("", s.requireAdmin())
	{
		authed.GET("/summary", s.handleAdminSummary)
		authed.GET("/analytics", s.handleAdminAnalytics)
		authed.GET("/inventory", s.handleAdminInventory)
		authed.POST("/inventory/:listing_id/remove", s.handleAdminRemove)
		authed.POST("/inventory/:listing_id/restore", s.handleAdminRestore)
		authed.POST("/inventory/:listing_id/sold", s.handleAdminSold)
		authed.POST("/sync", s.handleAdminSync)
		authed.GET("/labels", s.handleAdminLabels)
		authed.POST("/labels/:name/invalidate", s.handleAdminInvalidateLabel)
		authed.DELETE("/labels", s.handleAdminPurgeLabels)
	}

	return s
}

// Router exposes the handler tree
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("web server listening", zap.Int("port", s.cfg.Port))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	s.logger.Info("web server stopped")
	return nil
}
