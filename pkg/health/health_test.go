package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"creator-missions/services/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h *Checker, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	db := testutil.NewTestDB(t)
	rec := serve(ProvideHealth(HealthParams{DB: db}), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	var res Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, statusHealthy, res.Status)
	require.Len(t, res.Deps, 1)
	require.Equal(t, "sqlite", res.Deps[0].Name)
}

func TestReadinessDatabaseDown(t *testing.T) {
	db := testutil.NewTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := serve(ProvideHealth(HealthParams{DB: db}), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var res Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, statusUnhealthy, res.Status)
	require.Equal(t, statusUnhealthy, res.Deps[0].Status)
}

func TestLiveness(t *testing.T) {
	rec := serve(ProvideHealth(HealthParams{}), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
