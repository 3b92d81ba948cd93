package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"staybook/internal/app/policies"
)

var ErrNotConfigured = errors.New("payments: provider endpoint not configured")

// Client asks the payment provider for the status of a capture before a
// reservation is recorded for it.
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Timeout time.Duration
	Logger  *slog.Logger
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) CaptureStatus(ctx context.Context, captureID string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "", ErrNotConfigured
	}
	endpoint := base + "/captures/" + url.PathEscape(captureID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			err = fmt.Errorf("payments: provider timeout (%s)", base)
		} else {
			err = fmt.Errorf("payments: provider unavailable (%s): %w", base, err)
		}
		c.logError("capture lookup failed", captureID, err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", policies.ErrCaptureNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("payments: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logError("capture lookup rejected", captureID, err)
		return "", err
	}

	var body captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("payments: decode capture: %w", err)
	}
	if body.ID != "" && body.ID != captureID {
		return "", fmt.Errorf("payments: provider returned capture %q for %q", body.ID, captureID)
	}
	return body.Status, nil
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Timeout
}

func (c *Client) logError(msg, captureID string, err error) {
	if c.Logger != nil {
		c.Logger.Error(msg, "capture_id", captureID, "error", err)
	}
}

var _ policies.CaptureVerifier = (*Client)(nil)
