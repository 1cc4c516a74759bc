package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/validation"
)

// Fail attaches err for middleware.ErrorHandler and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RespondOK sends data as a bare JSON body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends 201 with the created resource.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// RespondNoContent sends 204.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// PathID parses the ":id" parameter. Ids below 1 are rejected with a 400
// carrying "Invalid id was provided!".
func PathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		Fail(c, errors.Validation("Invalid id was provided!").WithDetail("id", c.Param("id")))
		return 0, false
	}
	return id, true
}

// BindJSON decodes and validates the body into v. Failures answer 400.
func BindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		Fail(c, errors.Validation("Request body is not valid JSON.").WithCause(err))
		return false
	}
	if err := validation.Validate(v); err != nil {
		Fail(c, err)
		return false
	}
	return true
}
