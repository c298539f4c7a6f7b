// internal/app/system/limits/limits.go
package limits

// Request size limits for the JSON forms.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxFormBodySize is the maximum size of any JSON form body.
	MaxFormBodySize = 100 << 10 // 100 KB

	// MaxContactMessageLen is the longest contact message, in bytes, that
	// is forwarded to the site inbox.
	MaxContactMessageLen = 10 << 10 // 10 KB
)
