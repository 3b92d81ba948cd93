package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/auth"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/infra/config"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
)

const appSecret = "e2e-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type e2e struct {
	t      *testing.T
	app    *application
	router http.Handler
}

func newE2E(t *testing.T) *e2e {
	t.Helper()
	cfg := config.Config{
		Env:         "test",
		StorageMode: config.StorageMemory,
		Currency:    "PHP",
		HoldTTL:     15 * time.Minute,
		HorizonDays: 730,
		JWTSecret:   appSecret,
		JWTIssuer:   "staybook",
		CORSOrigins: []string{"*"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	app, err := buildApplication(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { app.close(context.Background(), logger) })

	n, err := loadListingFixtures(ctx, app.factory, filepath.Join("..", "..", "data", "listings.json"), cfg.Currency, logger)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	router := ginserver.NewRouter(cfg, obs.Middleware{Metrics: app.metrics}, obs.HealthHandlers{Ready: app.ready}, app.handlers)
	return &e2e{t: t, app: app, router: router}
}

func (e *e2e) call(method, path string, p auth.Principal, body any) (int, map[string]any) {
	e.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(e.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if p.ID != "" {
		tok, err := ginserver.IssueToken([]byte(appSecret), "staybook", p, time.Hour)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func guest(id string) auth.Principal {
	return auth.Principal{ID: id, Name: "Guest " + id, Email: id + "@example.com", Roles: []auth.Role{auth.RoleGuest}}
}

var (
	host  = auth.Principal{ID: "host-1", Roles: []auth.Role{auth.RoleHost}}
	admin = auth.Principal{ID: "admin-1", Roles: []auth.Role{auth.RoleAdmin}}
)

func stay(offsetDays, nights int) (string, string) {
	in := daterange.Day(time.Now().UTC()).AddDate(0, 0, offsetDays)
	return in.Format(daterange.DayLayout), in.AddDate(0, 0, nights).Format(daterange.DayLayout)
}

func booking(capture, checkIn, checkOut string) map[string]any {
	return map[string]any{
		"listing_id": "listing-cabin",
		"check_in":   checkIn,
		"check_out":  checkOut,
		"guests":     2,
		"capture":    map[string]any{"id": capture, "status": "COMPLETED"},
	}
}

func TestBookingFlowInMemory(t *testing.T) {
	e := newE2E(t)
	checkIn, checkOut := stay(40, 2)
	quotePath := "/api/v1/listings/listing-cabin/quote?check_in=" + checkIn + "&check_out=" + checkOut + "&guests=2"

	status, quote := e.call(http.MethodGet, quotePath+"&promo_code=LAKE10", auth.Principal{}, nil)
	require.Equal(t, http.StatusOK, status, quote)
	assert.EqualValues(t, 630000, quote["total"].(map[string]any)["amount"])
	assert.Equal(t, true, quote["available"])

	status, _ = e.call(http.MethodGet, quotePath+"&promo_code=NOPE", auth.Principal{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = e.call(http.MethodGet, "/api/v1/listings/listing-cabin/quote?check_in="+checkIn+"&check_out="+checkOut+"&guests=9", auth.Principal{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := e.call(http.MethodPost, "/api/v1/reservations", guest("g1"), booking("cap-1", checkIn, checkOut))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "CONFIRMED", body["status"])
	reservationID := body["id"]
	total := body["total"].(map[string]any)["amount"]
	assert.EqualValues(t, 700000, total)

	status, replay := e.call(http.MethodPost, "/api/v1/reservations", guest("g1"), booking("cap-1", checkIn, checkOut))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, reservationID, replay["id"])

	status, clash := e.call(http.MethodPost, "/api/v1/reservations", guest("g2"), booking("cap-2", checkIn, checkOut))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, true, clash["capture_unreconciled"])

	status, calendar := e.call(http.MethodGet, "/api/v1/listings/listing-cabin/availability", auth.Principal{}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, calendar["blocked_dates"], checkIn)
	status, quote = e.call(http.MethodGet, quotePath, auth.Principal{}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, quote["available"])

	require.Positive(t, e.app.relay.Deliver(context.Background()))

	status, standing := e.call(http.MethodGet, "/api/v1/host/rewards", host, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 10, standing["points"])

	status, wallet := e.call(http.MethodGet, "/api/v1/host/wallet", host, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 700000, wallet["balance"].(map[string]any)["amount"])

	status, mine := e.call(http.MethodGet, "/api/v1/me/reservations", guest("g1"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, mine["items"], 1)
	status, theirs := e.call(http.MethodGet, "/api/v1/me/reservations", guest("g2"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, theirs["items"])
}

func TestCancellationAndCashoutFlowInMemory(t *testing.T) {
	e := newE2E(t)
	checkIn, checkOut := stay(60, 1)

	status, body := e.call(http.MethodPost, "/api/v1/reservations", guest("g1"), booking("cap-9", checkIn, checkOut))
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)

	status, _ = e.call(http.MethodPost, "/api/v1/reservations/"+id+"/cancellation-request", guest("g2"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = e.call(http.MethodPost, "/api/v1/reservations/"+id+"/cancellation-request", guest("g1"), map[string]string{"reason": "flight cancelled"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "CANCELLATION_REQUESTED", body["status"])

	status, body = e.call(http.MethodPost, "/api/v1/host/reservations/"+id+"/cancellation/approve", host, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "CANCELLED", body["status"])

	status, _ = e.call(http.MethodPost, "/api/v1/host/reservations/"+id+"/cancellation/decline", host, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = e.call(http.MethodPost, "/api/v1/host/cashouts", host, map[string]any{"amount": 100000, "payout_email": "rosa@example.com"})
	require.Equal(t, http.StatusCreated, status, body)
	cashoutID := body["id"].(string)

	status, body = e.call(http.MethodPost, "/api/v1/admin/cashouts/"+cashoutID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "APPROVED", body["status"])

	status, _ = e.call(http.MethodPost, "/api/v1/admin/cashouts/"+cashoutID+"/decline", admin, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestHostClosedDaysAndListingsInMemory(t *testing.T) {
	e := newE2E(t)
	checkIn, checkOut := stay(80, 2)
	quotePath := "/api/v1/listings/listing-cabin/quote?check_in=" + checkIn + "&check_out=" + checkOut + "&guests=2"
	blockedPath := "/api/v1/host/listings/listing-cabin/blocked-dates"

	status, body := e.call(http.MethodPut, blockedPath, host, map[string]any{"dates": []string{checkOut}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, []any{checkOut}, body["blocked_dates"])

	status, quote := e.call(http.MethodGet, quotePath, auth.Principal{}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, quote["available"])
	status, _ = e.call(http.MethodPost, "/api/v1/reservations", guest("g1"), booking("cap-20", checkIn, checkOut))
	assert.Equal(t, http.StatusConflict, status)

	status, _ = e.call(http.MethodPut, blockedPath, auth.Principal{ID: "host-2", Roles: []auth.Role{auth.RoleHost}}, map[string]any{"dates": []string{}})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.call(http.MethodPut, blockedPath, host, map[string]any{"dates": []string{}})
	require.Equal(t, http.StatusOK, status)

	status, body = e.call(http.MethodPut, "/api/v1/host/listings/listing-cabin/status", host, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "INACTIVE", body["status"])
	status, _ = e.call(http.MethodGet, quotePath, auth.Principal{}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = e.call(http.MethodPut, "/api/v1/host/listings/listing-cabin/status", host, map[string]any{"active": true})
	require.Equal(t, http.StatusOK, status)
	status, body = e.call(http.MethodPost, "/api/v1/reservations", guest("g1"), booking("cap-21", checkIn, checkOut))
	require.Equal(t, http.StatusCreated, status, body)
}

func TestFixturesAreLoadedOnce(t *testing.T) {
	e := newE2E(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n, err := loadListingFixtures(context.Background(), e.app.factory, filepath.Join("..", "..", "data", "listings.json"), "PHP", logger)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = loadListingFixtures(context.Background(), e.app.factory, filepath.Join(t.TempDir(), "missing.json"), "PHP", logger)
	require.NoError(t, err)
	assert.Zero(t, n)
}
