package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Should emit JSON records at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Options{Level: "warn", JSON: true, Output: &buf})
		log.Info("hidden")
		log.Warn("shown", "key", "value")

		var record map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
		assert.Equal(t, "shown", record["msg"])
		assert.Equal(t, "value", record["key"])
	})

	t.Run("Should fall back to info for unknown levels", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Options{Level: "chatty", Output: &buf})
		log.Debug("hidden")
		log.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestDailyFile(t *testing.T) {
	t.Run("Should switch files at midnight and drop expired ones", func(t *testing.T) {
		dir := t.TempDir()
		stale := filepath.Join(dir, "app-2020-01-01.log")
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

		now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
		file, err := newDailyFile(dir, 3, func() time.Time { return now })
		require.NoError(t, err)
		t.Cleanup(func() { _ = file.Close() })

		_, err = file.Write([]byte("first\n"))
		require.NoError(t, err)
		now = now.Add(2 * time.Minute)
		_, err = file.Write([]byte("second\n"))
		require.NoError(t, err)

		first, err := os.ReadFile(filepath.Join(dir, "app-2026-03-01.log"))
		require.NoError(t, err)
		assert.Equal(t, "first\n", string(first))
		second, err := os.ReadFile(filepath.Join(dir, "app-2026-03-02.log"))
		require.NoError(t, err)
		assert.Equal(t, "second\n", string(second))

		assert.NoFileExists(t, stale)
		assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	})
}
