package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	log.Info("dropped")
	log.Warn("kept", "term", "go")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "go", entry["term"])
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "", RequestID(ctx))
	ctx = WithRequestID(ctx, "req-1")
	require.Equal(t, "req-1", RequestID(ctx))
	require.NotNil(t, FromContext(ctx))
}
