package database

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/MrEdHardy/schleuben/errors"
)

// IsConnectionError reports whether err looks like a lost or refused
// connection that a retry might cure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"driver: bad connection",
		"database is locked",
		"sql: database is closed",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a gorm error into an AppError. resource names the
// record kind and id its key, both used in the message.
func FromDatabase(err error, resource, id string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		notFound := apperrors.NotFound(resource, id)
		notFound.Message = fmt.Sprintf("No %s with given id %s was found!", resource, id)
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict(fmt.Sprintf("A %s with these details already exists.", resource)).WithCause(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperrors.Validation(fmt.Sprintf("The %s references a record that does not exist.", resource)).WithCause(err)
	case IsConnectionError(err):
		return (&apperrors.AppError{
			Code:       apperrors.ErrCodeDatabaseError,
			Message:    "Database is temporarily unavailable. Please try again.",
			HTTPStatus: http.StatusServiceUnavailable,
			Retryable:  true,
		}).WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
