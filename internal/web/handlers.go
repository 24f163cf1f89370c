package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/cart"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/payment"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100
)

// Page handlers

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title": "Freakin' Beats",
	})
}

func (s *Server) handleCartPage(c *gin.Context) {
	c.HTML(http.StatusOK, "cart.html", gin.H{
		"title": "Your Cart",
	})
}

func (s *Server) handleDetailPage(c *gin.Context) {
	listingID := c.Param("listing_id")

	item, err := s.catalog.ItemByListingID(listingID)
	if err != nil {
		c.HTML(http.StatusNotFound, "404.html", gin.H{})
		return
	}

	c.HTML(http.StatusOK, "detail.html", gin.H{
		"title":      item.ReleaseTitle,
		"listing_id": item.ListingID,
	})
}

func (s *Server) handleSuccessPage(c *gin.Context) {
	c.HTML(http.StatusOK, "success.html", gin.H{
		"session_id": c.Query("session_id"),
	})
}

// API handlers

func (s *Server) handleAPIData(c *gin.Context) {
	items, err := s.catalog.AllItems()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	page, perPage := pageParams(c)
	paged := pageSlice(items, page, perPage)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"items":    paged,
		"count":    len(paged),
		"total":    len(items),
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleAPIItem(c *gin.Context) {
	listingID := c.Param("listing_id")

	item, err := s.catalog.ItemWithVideos(c.Request.Context(), listingID)
	if err != nil {
		status := http.StatusInternalServerError
		msg := err.Error()
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
			msg = "Item not found"
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    item,
	})
}

func (s *Server) handleAPIItemByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid id",
		})
		return
	}

	item, err := s.catalog.ItemWithVideosByID(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		msg := err.Error()
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
			msg = "Item not found"
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    item,
	})
}

func (s *Server) handleAPISearch(c *gin.Context) {
	items, err := s.catalog.Search(c.Query("q"), c.Query("artist"), c.Query("genre"), c.Query("format"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	page, perPage := pageParams(c)
	paged := pageSlice(items, page, perPage)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"items":    paged,
		"count":    len(paged),
		"total":    len(items),
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleAPIFilter(c *gin.Context) {
	items, err := s.catalog.Filter(storage.FilterParams{
		Query:           c.Query("q"),
		Artist:          c.Query("artist"),
		Label:           c.Query("label"),
		Year:            c.Query("year"),
		Condition:       c.Query("condition"),
		SleeveCondition: c.Query("sleeve_condition"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	page, perPage := pageParams(c)
	paged := pageSlice(items, page, perPage)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"items":    paged,
		"count":    len(paged),
		"total":    len(items),
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleAPIFacets(c *gin.Context) {
	facets, err := s.catalog.Facets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"facets":  facets,
	})
}

func (s *Server) handleAPIStats(c *gin.Context) {
	stats, err := s.catalog.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

type cartRequest struct {
	Items []cart.RawItem `json:"items"`
}

func (s *Server) handleAPICartValidate(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	v := s.carts.ValidateCart(req.Items)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"valid":   v.Valid,
		"items":   v.Items,
		"errors":  v.Errors,
		"summary": v.Summary,
	})
}

func (s *Server) handleAPICheckoutSession(c *gin.Context) {
	if !s.checkout.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "payment not configured",
		})
		return
	}

	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Cart is empty",
		})
		return
	}

	sc, err := s.carts.StripeLines(req.Items)
	if err != nil {
		var verr *cart.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
				"errors":  verr.Errors,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	sess, err := s.checkout.CreateCheckout(c.Request.Context(), sc, requestOrigin(c))
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "payment not configured",
			})
			return
		}
		s.logger.Error("checkout session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "could not create checkout session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sess.ID,
		"url":        sess.URL,
	})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func pageSlice(items []*storage.Listing, page, perPage int) []*storage.Listing {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []*storage.Listing{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
