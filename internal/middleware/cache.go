package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// responseMeta collects per-request facts handlers want to surface in the
// response envelope. Timing is computed when the meta is extracted, so it
// lands inside the payload instead of after it was written.
type responseMeta struct {
	start    time.Time
	cacheHit *bool
}

// WithResponseMeta attaches a metadata carrier to the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the cache satisfied the current request.
func SetCacheHit(c *gin.Context, hit bool) {
	if m := metaFrom(c); m != nil {
		m.cacheHit = &hit
	}
}

// ExtractMeta renders the collected metadata for the response envelope. Nil
// when WithResponseMeta is not installed on the route.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaFrom(c)
	if m == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(m.start).Milliseconds(),
	}
	if m.cacheHit != nil {
		out["cache_hit"] = *m.cacheHit
	}
	return out
}

func metaFrom(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	if v, exists := c.Get(responseMetaKey); exists {
		if m, ok := v.(*responseMeta); ok {
			return m
		}
	}
	return nil
}
