package core

import "context"

// Notifier is an interface to receive resource notifications. Notifications are
// only sent for committed changes.
type Notifier interface {
	Notify(ctx context.Context, resource string, operation Operation, payload []byte)
}
