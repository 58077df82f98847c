package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cart-backend/internal/observability"
)

func TestMetricsLabelsRoutesAndSkipsScrapes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := observability.New()
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	r := gin.New()
	r.Use(Metrics(m, "/metrics"))
	r.DELETE("/api/cart/:product_id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/api/cart/abc", "/api/cart/def"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, target, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(context.Background(), &buf))
	out := buf.String()
	require.Contains(t, out, `cart_api_requests_total{method="DELETE",route="/api/cart/:product_id",status="200"} 2`)
	require.Contains(t, out, `cart_api_requests_total{method="GET",route="unmatched",status="404"} 1`)
	require.NotContains(t, out, `route="/metrics"`)
}

func TestMetricsNilIsPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}
