package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds uploaded fabric documents.
const DefaultMaxBodyBytes = 64 << 20

// BodySizeLimit creates middleware that rejects request bodies larger than
// maxBytes. A declared Content-Length is checked up front; chunked bodies
// are cut off by http.MaxBytesReader.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
