package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/policies"
)

func provider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/captures/cap-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cap-1","status":"COMPLETED"}`))
		case "/captures/cap-other":
			_, _ = w.Write([]byte(`{"id":"cap-2","status":"COMPLETED"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCaptureStatus(t *testing.T) {
	srv := provider(t)
	c := &Client{BaseURL: srv.URL, Token: "secret"}

	status, err := c.CaptureStatus(context.Background(), "cap-1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", status)

	_, err = c.CaptureStatus(context.Background(), "cap-missing")
	assert.ErrorIs(t, err, policies.ErrCaptureNotFound)

	_, err = c.CaptureStatus(context.Background(), "cap-other")
	assert.ErrorContains(t, err, "cap-2")
}

func TestCaptureStatusErrors(t *testing.T) {
	srv := provider(t)

	_, err := (&Client{BaseURL: srv.URL}).CaptureStatus(context.Background(), "cap-1")
	assert.ErrorContains(t, err, "401")

	_, err = (&Client{}).CaptureStatus(context.Background(), "cap-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
