package metricsvc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

func scrape(t *testing.T, m *Metrics) string {
	rec := httptest.NewRecorder()
	m.DebugMux(core.NewTestConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddlewareCountsRoutes(t *testing.T) {
	m := New(core.NewTestConfig())
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/exams/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, path := range []string{"/api/exams/1", "/api/exams/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	out := scrape(t, m)
	assert.Contains(t, out, `http_requests_total{code="200",method="GET",route="/api/exams/:id"} 2`)
	assert.Contains(t, out, `build_info{build="test",env="TEST"} 1`)
}

func TestSubmittedAndPurged(t *testing.T) {
	m := New(core.NewTestConfig())
	m.Submitted("exam")
	m.Submitted("exam")
	m.Submitted("homework")
	m.Purged("sessions", 3)

	out := scrape(t, m)
	assert.Contains(t, out, `submissions_total{kind="exam"} 2`)
	assert.Contains(t, out, `submissions_total{kind="homework"} 1`)
	assert.Contains(t, out, `purged_records_total{table="sessions"} 3`)
}

func TestSeveralInstances(t *testing.T) {
	assert.NotPanics(t, func() {
		New(core.NewTestConfig())
		New(core.NewTestConfig())
	})
}
