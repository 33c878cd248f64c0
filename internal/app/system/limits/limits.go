// internal/app/system/limits/limits.go
package limits

import "net/http"

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxFormSize is the maximum size of a registry form submission
	// (workgroup edit, member changes, item assignment).
	MaxFormSize = 256 << 10 // 256 KB

	// MaxDefinitionSize bounds a workgroup definition after sanitizing.
	MaxDefinitionSize = 64 << 10 // 64 KB
)

// Body caps the request body at n bytes. Reads past the cap fail, so
// ParseForm reports an error instead of buffering the excess.
func Body(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
