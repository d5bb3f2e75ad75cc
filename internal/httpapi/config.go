package httpapi

import (
	"github.com/go-chi/cors"
)

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// chatTimeout controls the maximum duration a chat request may run before
// timing out. Zero means no additional timeout beyond server/connection
// timeouts.
var chatTimeout = int64(0) // seconds

// SetChatTimeoutSeconds sets the chat timeout in seconds (0 disables).
func SetChatTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	chatTimeout = sec
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. Must be
// called before NewMux.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

func corsOptions() cors.Options {
	origins := corsAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Content-Type", "X-Log-Level"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         300,
	}
}
