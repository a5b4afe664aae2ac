package notify

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/logger"
)

// DefaultTopic is the topic resource notifications are written to unless configured otherwise
const DefaultTopic = "resource_notification"

// header keys of a notification message
const (
	HeaderOperation = "operation"
	HeaderLogger    = "logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes one message per notification. The message key is the
// resource, so all notifications of a resource keep their order.
type KafkaNotifier struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaNotifier returns a notifier writing to topic on the given brokers
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		timeout: 10 * time.Second,
	}
}

// Notify implements core.Notifier. Delivery failures are logged, the change
// they report is already committed.
func (k *KafkaNotifier) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	msg := kafka.Message{
		Key:   []byte(resource),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderOperation, Value: []byte(operation)},
			{Key: HeaderLogger, Value: logger.SerializeLoggerContext(ctx)},
		},
	}
	// the request may be gone by now
	wctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	if err := k.writer.WriteMessages(wctx, msg); err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 2001: cannot write %s notification for %s", operation, resource)
	}
}

// Close flushes and closes the writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
