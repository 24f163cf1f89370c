package web

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/metrics"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

const maxHeaderLen = 500

// accessLogMiddleware records every page and API request for the admin
// analytics view. A storage failure is logged and never affects the
// response.
func (s *Server) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipAccessLog(path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		entry := &storage.AccessLog{
			Timestamp:      start.UTC(),
			Method:         c.Request.Method,
			Path:           path,
			QueryString:    c.Request.URL.RawQuery,
			FullURL:        c.Request.URL.String(),
			IPAddress:      c.ClientIP(),
			UserAgent:      truncate(c.Request.UserAgent(), maxHeaderLen),
			Referrer:       truncate(c.Request.Referer(), maxHeaderLen),
			StatusCode:     c.Writer.Status(),
			ResponseTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
			Endpoint:       c.FullPath(),
		}
		if err := s.store.InsertAccessLog(entry); err != nil {
			s.logger.Warn("access log insert failed", zap.Error(err))
		}
	}
}

func skipAccessLog(path string) bool {
	return strings.HasPrefix(path, "/static") ||
		path == "/metrics" ||
		path == "/favicon.ico"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.Observe(time.Since(start).Seconds())
	}
}
