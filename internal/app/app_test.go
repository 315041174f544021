package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idqcli/internal/config"
	"idqcli/internal/shared/testutil"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.ReportsDir = dir
	cfg.Server.RunTimeout = time.Minute

	logger, _ := testutil.NewBufferedLogger()
	application, err := New(cfg, logger)
	require.NoError(t, err)
	return application
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	application := newTestApp(t)

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestVersionEndpoint(t *testing.T) {
	application := newTestApp(t)

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), config.AppName)
}

func TestMetricsEndpoint(t *testing.T) {
	application := newTestApp(t)

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRunReturns404(t *testing.T) {
	application := newTestApp(t)

	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_NOT_FOUND")
}
