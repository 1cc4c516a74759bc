package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/logger"
)

// UnhandledErrorMessage is the body text for errors nobody classified.
const UnhandledErrorMessage = "An error occurred while processing the request."

// ErrorHandler turns panics and errors attached with c.Error into JSON
// responses. An *errors.AppError answers with its own status and body;
// anything else is logged and answered with 500.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("server")
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithContext(c.Request.Context()).Error("Panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					logger.FieldMethod, c.Request.Method,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": UnhandledErrorMessage})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if appErr, ok := errors.AsAppError(err); ok {
			if appErr.HTTPStatus >= 500 {
				log.WithContext(c.Request.Context()).Error("Request failed", logger.Fields(
					logger.FieldError, appErr.Error(),
					"path", c.Request.URL.Path,
				))
			}
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}

		log.WithContext(c.Request.Context()).Error("Unhandled error", logger.Fields(
			logger.FieldError, err.Error(),
			"path", c.Request.URL.Path,
			logger.FieldMethod, c.Request.Method,
		))
		c.JSON(http.StatusInternalServerError, gin.H{"error": UnhandledErrorMessage})
	}
}
