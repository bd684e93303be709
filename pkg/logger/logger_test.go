package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfetch/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "debug level console", cfg: &config.LoggingConfig{Level: "debug", Format: "console"}},
		{name: "empty level defaults to info", cfg: &config.LoggingConfig{}},
		{name: "invalid log level", cfg: &config.LoggingConfig{Level: "invalid"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "igfetch.log")

	log, err := New(&config.LoggingConfig{Level: "info", File: path, Format: "json"})
	require.NoError(t, err)

	log.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]interface{}
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "debug")
	require.NoError(t, err)

	log.WithField("shortcode", "ABC123").
		WithError(errors.New("boom")).
		InfoWithFields("strategy failed", map[string]interface{}{
			"strategy": "direct_api",
			"attempt":  2,
			"elapsed":  1500 * time.Millisecond,
		})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "strategy failed", line["message"])
	assert.Equal(t, "igfetch", line["app"])
	assert.Equal(t, "ABC123", line["shortcode"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "direct_api", line["strategy"])
	assert.Equal(t, float64(2), line["attempt"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "warn")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown too")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent, err := NewWithWriter(&buf, "info")
	require.NoError(t, err)

	_ = parent.WithField("child", true)
	parent.Info("parent only")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["child"]
	assert.False(t, ok)
}

func TestWithErrorNil(t *testing.T) {
	log := NewNopLogger()
	assert.Equal(t, log, log.WithError(nil))
}

func TestTestLogger(t *testing.T) {
	log := NewTestLogger()

	log.Info("first")
	child := log.WithField("strategy", "html_scraping")
	child.Warn("second")
	child.WithError(errors.New("bad")).ErrorWithFields("third", map[string]interface{}{"n": 1})

	msgs := log.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "INFO", msgs[0].Level)
	assert.Equal(t, "html_scraping", msgs[1].Fields["strategy"])
	assert.Equal(t, "bad", msgs[2].Fields["error"])
	assert.Equal(t, 1, msgs[2].Fields["n"])

	assert.True(t, log.HasMessage("sec"))
	assert.Len(t, log.GetMessagesByLevel("ERROR"), 1)

	log.Clear()
	assert.Empty(t, log.GetMessages())
}
