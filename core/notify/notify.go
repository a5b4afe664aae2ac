// Package notify delivers committed resource changes to the outside world.
package notify

import (
	"context"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/logger"
)

// LogNotifier logs every notification at info level. It is the notifier of
// services without message brokers.
type LogNotifier struct{}

// Notify implements core.Notifier
func (LogNotifier) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	logger.FromContext(ctx).WithField("resource", resource).Infof("%s: %s", operation, payload)
}

// Multi fans a notification out to several notifiers in order
type Multi []core.Notifier

// Notify implements core.Notifier
func (m Multi) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	for _, n := range m {
		n.Notify(ctx, resource, operation, payload)
	}
}
