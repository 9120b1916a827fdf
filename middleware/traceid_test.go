package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracedRequest(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	r := gin.New()
	r.Use(TraceID())
	r.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	if header != "" {
		req.Header.Set(TraceIDHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w, w.Body.String()
}

func TestTraceID_MintedWhenAbsent(t *testing.T) {
	w, id := tracedRequest(t, "")
	assert.Len(t, id, 36) // uuid text form
	assert.Equal(t, id, w.Header().Get(TraceIDHeader))
}

func TestTraceID_CallerSuppliedKept(t *testing.T) {
	w, id := tracedRequest(t, "req-from-mobile-app")
	assert.Equal(t, "req-from-mobile-app", id)
	assert.Equal(t, "req-from-mobile-app", w.Header().Get(TraceIDHeader))
}

func TestTraceID_FreshPerRequest(t *testing.T) {
	_, first := tracedRequest(t, "")
	_, second := tracedRequest(t, "")
	assert.NotEqual(t, first, second)
}

func TestGetTraceID_OutsideTracedRequest(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetTraceID(c))
}
