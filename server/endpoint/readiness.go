package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/component"
)

// Readiness answers 503 while any component is unhealthy.
func Readiness(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			for _, ch := range checker(c.Request.Context()) {
				if ch.Status == component.StatusUnhealthy {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "component": ch.Name})
					return
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
