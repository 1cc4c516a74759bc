package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
)

// quietPaths are probed often and not worth a log line or a metric series.
var quietPaths = map[string]bool{
	"/health":          true,
	"/livez":           true,
	"/readyz":          true,
	"/metrics":         true,
	"/openapi/v1.json": true,
}

// RequestLogger logs every request with method, path, status and duration.
// Level follows the status class. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	log = log.WithComponent("server")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.Fields(
				logger.FieldMethod, r.Method,
				"path", r.URL.Path,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

// Metrics records request count, latency and in-flight requests keyed by
// the gin route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if quietPaths[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)
		c.Next()
		m.RecordRequestEnd(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
