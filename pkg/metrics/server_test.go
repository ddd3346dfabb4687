package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"creator-missions/pkg/health"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(health.ProvideHealth(health.HealthParams{}))

	rec := get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")

	require.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	require.Equal(t, http.StatusOK, get(r, "/readyz").Code)
}

func TestRouterWithoutHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(nil)

	require.Equal(t, http.StatusOK, get(r, "/metrics").Code)
	require.Equal(t, http.StatusNotFound, get(r, "/healthz").Code)
}
