package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w, timeout: time.Second}
	ctx, _ := logger.ContextWithLogger(context.Background())

	k.Notify(ctx, "clients", core.OperationCreate, []byte(`{"name":"Acme"}`))
	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "clients", string(msg.Key))
	assert.JSONEq(t, `{"name":"Acme"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, HeaderOperation, msg.Headers[0].Key)
	assert.Equal(t, "create", string(msg.Headers[0].Value))
	assert.Contains(t, string(msg.Headers[1].Value), logger.RequestIDFromContext(ctx))

	w.err = errors.New("broker down")
	assert.NotPanics(t, func() { k.Notify(ctx, "clients", core.OperationDelete, nil) })
	assert.Len(t, w.messages, 1)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaNotifier_DefaultTopic(t *testing.T) {
	k := NewKafkaNotifier([]string{"localhost:9092"}, "")
	w, ok := k.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	out := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(out)

	Multi{LogNotifier{}, LogNotifier{}}.Notify(context.Background(), "states", core.OperationUpdate, []byte(`{}`))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("update: {}")))
	assert.Contains(t, buf.String(), "resource=states")
}
