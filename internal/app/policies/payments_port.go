package policies

import (
	"context"
	"errors"
)

var ErrCaptureNotFound = errors.New("payments: capture not found")

// CaptureVerifier looks a capture up at the payment provider and returns its
// status as the provider reports it.
type CaptureVerifier interface {
	CaptureStatus(ctx context.Context, captureID string) (string, error)
}
