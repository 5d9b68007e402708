package httpapi

import "time"

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

// chatTimeout bounds a POST /chat request. Zero means no additional timeout
// beyond server/connection timeouts.
var chatTimeout time.Duration

// SetChatTimeout sets the POST /chat timeout (0 disables).
func SetChatTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	chatTimeout = d
}

// keepAliveInterval is the gap between SSE comment frames and WebSocket pings.
var keepAliveInterval = 15 * time.Second

// SetKeepAliveInterval overrides the stream keep-alive interval.
func SetKeepAliveInterval(d time.Duration) {
	if d <= 0 {
		keepAliveInterval = 15 * time.Second
		return
	}
	keepAliveInterval = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// originAllowed reports whether a cross-origin WebSocket handshake from
// origin is acceptable under the CORS settings.
func originAllowed(origin string) bool {
	if !corsEnabled {
		return false
	}
	for _, o := range corsAllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
