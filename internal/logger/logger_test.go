package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("debug")
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel("info")
	})
	return &buf
}

func TestLogWithRequestID(t *testing.T) {
	buf := capture(t)
	ctx := WithRequestID(context.Background(), "req-1")

	InfoLog(ctx, "exported %d rows", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "exported 3 rows", entry["message"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestLevels(t *testing.T) {
	buf := capture(t)
	SetLevel("warn")

	DebugLog(context.Background(), "hidden")
	InfoLog(context.Background(), "hidden")
	WarnLog(context.Background(), "shown")
	ErrorLog(context.Background(), "100%% shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), `"message":"100%% shown"`, "format verbs are left alone without args")
}

func TestGeneratedRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	assert.Len(t, RequestID(ctx), 36)
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestInitLoggingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	InitLogging(path)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	log := FromContext(WithRequestID(context.Background(), "abc"))
	log.Info().Msg("hello")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"request_id":"abc"`)
}
