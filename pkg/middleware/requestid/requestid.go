package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	headerName = "X-Request-ID"
	contextKey = "request_id"

	// Inbound IDs longer than this are replaced rather than truncated, so a
	// correlated ID is always the one the client actually sent.
	maxInboundLen = 64
)

// Middleware tags each request with an ID, honoring a well-formed inbound
// X-Request-ID so traces can span proxies and callers.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sanitize(c.GetHeader(headerName))
		if id == "" {
			id = newID()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(headerName, id)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// sanitize accepts inbound IDs that are safe to echo into logs and headers:
// URL-token characters only, bounded length. Anything else is discarded.
func sanitize(id string) string {
	if id == "" || len(id) > maxInboundLen {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '-' || r == '_' || r == '.':
		default:
			return ""
		}
	}
	return id
}

func newID() string {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "t" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf[:])
}
