package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithLogger_KeepsExistingLogger(t *testing.T) {
	ctx, rlog := ContextWithLogger(context.Background())
	require.NotEmpty(t, RequestIDFromContext(ctx))

	ctx2, rlog2 := ContextWithLogger(ctx)
	assert.Equal(t, ctx, ctx2)
	assert.Equal(t, rlog, rlog2)
}

func TestContextWithLoggerIdentity(t *testing.T) {
	ctx, _ := ContextWithLogger(context.Background())
	requestID := RequestIDFromContext(ctx)

	ctx, rlog := ContextWithLoggerIdentity(ctx, "3e8c2a53-6a39-4f25-9c8e-5b1a0f9d2c11")
	assert.Equal(t, "3e8c2a53-6a39-4f25-9c8e-5b1a0f9d2c11", rlog.Data["identity"])
	assert.Equal(t, requestID, RequestIDFromContext(ctx))

	var values map[string]string
	require.NoError(t, json.Unmarshal(SerializeLoggerContext(ctx), &values))
	assert.Equal(t, requestID, values["requestID"])
	assert.Equal(t, "3e8c2a53-6a39-4f25-9c8e-5b1a0f9d2c11", values["identity"])
}

func TestSerializeLoggerContext_NoLogger(t *testing.T) {
	assert.Equal(t, "{}", string(SerializeLoggerContext(context.Background())))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestAddRequestID(t *testing.T) {
	router := mux.NewRouter()
	AddRequestID(router)
	var seen string
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}
