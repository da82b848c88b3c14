package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(capacity int, exempt ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewSimpleTokenBucket(capacity, capacity).GinMiddleware(exempt...))
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/v1/records", handler)
	r.GET("/v1/camera/preview", handler)
	return r
}

func get(r *gin.Engine, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestLimiterAllowsWithinCapacity(t *testing.T) {
	r := limitedRouter(3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/v1/records"))
	}
}

func TestLimiterRejectsWhenExhausted(t *testing.T) {
	r := limitedRouter(2)

	get(r, "/v1/records")
	get(r, "/v1/records")
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/v1/records"))
}

func TestLimiterExemptsPreviewPolling(t *testing.T) {
	r := limitedRouter(1, "/v1/camera/preview")

	get(r, "/v1/records")
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/v1/camera/preview"))
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/v1/records"))
}
