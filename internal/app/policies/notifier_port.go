package policies

import "context"

// Notification is one templated email. Template names a per-category
// endpoint; Data is posted as the JSON body.
type Notification struct {
	Template string
	To       string
	Data     any
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
