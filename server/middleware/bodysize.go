package middleware

import (
	"net/http"

	"github.com/dustin/go-humanize"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit caps request bodies at maxSize, e.g. "512KB" or "1MB".
// Unparsable sizes fall back to 1 MiB.
func BodySizeLimit(maxSize string) Middleware {
	size := int64(defaultMaxBodySize)
	if n, err := humanize.ParseBytes(maxSize); err == nil && n > 0 {
		size = int64(n)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
