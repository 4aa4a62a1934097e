package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRequest(t *testing.T, inbound string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		c.Request.Header.Set("X-Request-ID", inbound)
	}
	Middleware()(c)
	return c, w
}

func TestMiddlewareHonorsInboundID(t *testing.T) {
	c, w := runRequest(t, "upstream-42")
	assert.Equal(t, "upstream-42", Value(c))
	assert.Equal(t, "upstream-42", w.Header().Get("X-Request-ID"))
}

func TestMiddlewareReplacesUnsafeInboundID(t *testing.T) {
	c, _ := runRequest(t, "bad id\nwith newline")
	id := Value(c)
	require.NotEmpty(t, id)
	assert.NotContains(t, id, "\n")
	assert.NotEqual(t, "bad id\nwith newline", id)
}

func TestMiddlewareGeneratesIDWhenMissing(t *testing.T) {
	c, w := runRequest(t, "")
	id := Value(c)
	require.NotEmpty(t, id)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}
