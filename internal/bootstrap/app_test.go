package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/excelstream/internal/handler"
	"github.com/locvowork/excelstream/internal/logger"
	"github.com/locvowork/excelstream/internal/service"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := NewApp()
	a.RegisterMiddlewares()
	a.RegisterRoutes(handler.NewExportHandler(service.NewExportService(service.Deps{})))
	return a
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t)

	for _, tc := range []struct {
		method, target string
		code           int
	}{
		{http.MethodGet, "/export/sql", http.StatusOK},
		{http.MethodGet, "/export/sql/payroll", http.StatusServiceUnavailable},
		{http.MethodGet, "/export/search/people", http.StatusServiceUnavailable},
		{http.MethodGet, "/export/datastore/Employee", http.StatusServiceUnavailable},
		{http.MethodGet, "/export/unknown", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		a.Echo.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, tc.code, rec.Code, tc.target)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID), tc.target)
	}
}

func TestRequestLogger(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	var got string
	h := requestLogger(func(c echo.Context) error {
		got = logger.RequestID(c.Request().Context())
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "req-1", got)
}

func TestLoadReports(t *testing.T) {
	dir := t.TempDir()
	reports, err := loadReports(filepath.Join(dir, reportCatalog))
	require.NoError(t, err)
	assert.Empty(t, reports)

	path := filepath.Join(dir, reportCatalog)
	require.NoError(t, os.WriteFile(path, []byte("reports:\n  - name: headcount\n    query: SELECT 1\n"), 0o644))
	reports, err = loadReports(path)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "headcount", reports[0].Name)

	require.NoError(t, os.WriteFile(path, []byte("reports: [{name: x}]\n"), 0o644))
	_, err = loadReports(path)
	assert.Error(t, err)
}
