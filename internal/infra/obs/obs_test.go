package obs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDPropagates(t *testing.T) {
	var buf bytes.Buffer
	mw := Middleware{Logger: newLogger(&buf, "prod"), Metrics: NewMetrics()}
	r := gin.New()
	r.Use(mw.RequestID(), mw.LoggerMiddleware())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"path":"/ping"`)
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	r := gin.New()
	r.Use(Middleware{}.RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestReadyzReportsFailure(t *testing.T) {
	r := gin.New()
	failing := HealthHandlers{Ready: func(context.Context) error { return errors.New("mongo down") }}
	r.GET("/readyz", failing.Readyz)
	r.GET("/livez", failing.Livez)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "mongo down")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsCountersAndExposition(t *testing.T) {
	m := NewMetrics()
	m.ReservationConfirmed("homes")
	m.ReservationConfirmed("homes")
	m.OverbookingPrevented()
	m.SideEffectFailed("email")
	m.PointsAwarded(10)
	m.PointsAwarded(0)
	m.ObserveMessage("command", "reservations.confirm_payment", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `staybook_reservations_confirmed_total{category="homes"} 2`)
	assert.Contains(t, body, "staybook_overbooking_prevented_total 1")
	assert.Contains(t, body, "staybook_reward_points_awarded_total 10")
	assert.Contains(t, body, `staybook_side_effect_failures_total{kind="email"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReservationConfirmed("homes")
		m.OverbookingPrevented()
		m.StatusChanged("CANCELLED")
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.OutboxRecord("published")
	})
}
