package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Format: "json", Output: "stdout"})
	require.Error(t, err)
}

func TestLoggerWritesJSONWithChildFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Component("store").Info("rows persisted", Int("rows", 3), Error(errors.New("boom")))
	l.Debug("dropped below level")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "rows persisted", entry["message"])
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.With(String("k", "v")).Error("nothing", Strings("a", []string{"x"}))
	})
}
