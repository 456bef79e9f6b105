package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/reconthing/reconthing/internal/log"

	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(true, &buf)

	ctx := log.ContextAttrs(t.Context(), slog.String("task_id", "t1"))
	child := log.ContextAttrs(ctx, slog.String("tool", "dnsx"))

	logger.DebugContext(child, "invoked")
	logger.InfoContext(ctx, "parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	require.Equal(t, "t1", first["task_id"])
	require.Equal(t, "dnsx", first["tool"])
	require.Equal(t, "t1", second["task_id"])
	require.NotContains(t, second, "tool")
}

func TestNewLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(false, &buf)
	logger.Debug("hidden")
	require.Zero(t, buf.Len())
	logger.With("k", "v").Info("shown")
	require.Contains(t, buf.String(), `"k":"v"`)
}

func TestOutput(t *testing.T) {
	t.Parallel()
	for _, dest := range []string{"", log.Stderr, log.Stdout, log.Discard} {
		w, closeFn, err := log.Output(dest)
		require.NoError(t, err)
		require.NotNil(t, w)
		require.NoError(t, closeFn())
	}

	path := filepath.Join(t.TempDir(), "reconthing.log")
	w, closeFn, err := log.Output(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, closeFn())

	_, _, err = log.Output(filepath.Join(t.TempDir(), "missing", "x.log"))
	require.Error(t, err)
}
