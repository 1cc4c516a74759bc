package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Metrics serves a Prometheus scrape handler, typically the one returned by
// observability.InitPrometheus.
func Metrics(h http.Handler) gin.HandlerFunc {
	return gin.WrapH(h)
}
