package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"staybook/internal/app/policies"
)

var (
	ErrNotConfigured   = errors.New("email: endpoint not configured")
	ErrUnknownTemplate = errors.New("email: no endpoint for template")
)

// Client posts templated notifications to the email service. Each template
// has its own endpoint, either an absolute URL or a path below BaseURL.
type Client struct {
	BaseURL   string
	Templates map[string]string
	Client    *http.Client
	Timeout   time.Duration
	Logger    *slog.Logger
}

type sendRequest struct {
	Template string `json:"template"`
	To       string `json:"to"`
	Data     any    `json:"data"`
}

func (c *Client) Send(ctx context.Context, n policies.Notification) error {
	endpoint, err := c.endpoint(n.Template)
	if err != nil {
		return err
	}
	body, err := json.Marshal(sendRequest{Template: n.Template, To: n.To, Data: n.Data})
	if err != nil {
		return fmt.Errorf("email: encode %s: %w", n.Template, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("email: service timeout (%s)", endpoint)
		}
		return fmt.Errorf("email: service unavailable (%s): %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email: service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if c.Logger != nil {
		c.Logger.Debug("email sent", "template", n.Template, "status", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(template string) (string, error) {
	target, ok := c.Templates[template]
	if !ok {
		if len(c.Templates) > 0 {
			return "", fmt.Errorf("%w %q", ErrUnknownTemplate, template)
		}
		target = "/" + template
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target, nil
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "", ErrNotConfigured
	}
	return base + "/" + strings.TrimLeft(target, "/"), nil
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

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, msg policies.Notification) error {
	if n.Logger != nil {
		n.Logger.InfoContext(ctx, "email not sent, no endpoint configured", "template", msg.Template, "to", msg.To)
	}
	return nil
}

var (
	_ policies.Notifier = (*Client)(nil)
	_ policies.Notifier = LogNotifier{}
)
