package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/syncer"
)

const sessionCookie = "fb_admin"

// Admin pages

func (s *Server) handleAdminLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_login.html", gin.H{})
}

func (s *Server) handleAdminPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin.html", gin.H{})
}

// Session auth

func (s *Server) handleAdminLogin(c *gin.Context) {
	if s.cfg.Admin.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "admin panel not configured",
		})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid password",
		})
		return
	}

	ttl := time.Duration(s.cfg.Admin.SessionTTLHours) * time.Hour
	token, err := s.store.CreateSession(ttl)
	if err != nil {
		s.logger.Error("creating admin session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "could not create session",
		})
		return
	}

	c.SetCookie(sessionCookie, token, int(ttl.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleAdminLogout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		if derr := s.store.DeleteSession(token); derr != nil {
			s.logger.Warn("deleting admin session failed", zap.Error(derr))
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}

		ok, err := s.store.ValidSession(token)
		if err != nil {
			s.logger.Error("session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "session lookup failed",
			})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}

		c.Next()
	}
}

// Admin API

func (s *Server) handleAdminSummary(c *gin.Context) {
	since := time.Now().UTC().Add(-24 * time.Hour)

	access, err := s.store.AccessSummary(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	stats, err := s.catalog.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"access":    access,
		"inventory": stats,
	})
}

func (s *Server) handleAdminAnalytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days < 1 {
		days = 7
	}

	daily, err := s.store.DailyCounts(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	topPaths, err := s.store.TopPaths(since, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	recent, err := s.store.RecentAccess(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"days":      days,
		"daily":     daily,
		"top_paths": topPaths,
		"recent":    recent,
	})
}

func (s *Server) handleAdminInventory(c *gin.Context) {
	include := c.Query("include_inactive")
	onlyActive := include != "1" && include != "true"

	items, err := s.store.AllListings(onlyActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"items":   items,
		"count":   len(items),
	})
}

func (s *Server) handleAdminRemove(c *gin.Context) {
	s.adminListingOp(c, s.catalog.SoftDelete)
}

func (s *Server) handleAdminRestore(c *gin.Context) {
	s.adminListingOp(c, s.catalog.Restore)
}

func (s *Server) handleAdminSold(c *gin.Context) {
	s.adminListingOp(c, s.catalog.MarkSold)
}

func (s *Server) adminListingOp(c *gin.Context, op func(string) (bool, error)) {
	listingID := c.Param("listing_id")

	found, err := op(listingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Item not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing_id": listingID})
}

func (s *Server) handleAdminSync(c *gin.Context) {
	stats, err := s.sync.SyncAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "sync already in progress",
			})
			return
		}
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

func (s *Server) handleAdminLabels(c *gin.Context) {
	labels, err := s.store.AllLabelOverviews()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"labels":  labels,
		"count":   len(labels),
	})
}

func (s *Server) handleAdminInvalidateLabel(c *gin.Context) {
	name := c.Param("name")

	found, err := s.store.InvalidateLabelOverview(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "label not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "label": name})
}

func (s *Server) handleAdminPurgeLabels(c *gin.Context) {
	purged, err := s.store.PurgeLabelOverviews()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "purged": purged})
}
