package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lapak.log")

	log, err := New(Config{Level: "info", File: path})
	require.NoError(t, err)
	defer log.Close()

	zl := log.GetZerolog()
	zl.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestNew_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lapak.log")

	log, err := New(Config{Level: "warn", File: path})
	require.NoError(t, err)
	defer log.Close()

	zl := log.GetZerolog()
	zl.Info().Msg("quiet")
	zl.Warn().Msg("loud")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	log, err := New(Config{Level: "shout", Console: true})
	require.NoError(t, err)
	defer log.Close()
}

func TestRedactor(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		keep string
	}{
		{name: "openai key", in: "key sk-abcdefghijklmnopqrstuvwxyz123456 used", keep: "key [REDACTED] used"},
		{name: "bearer token", in: "auth Bearer abc.def.ghi done", keep: "auth [REDACTED] done"},
		{name: "phone number", in: "customer 081234567890 ordered", keep: "customer [REDACTED] ordered"},
		{name: "plain text untouched", in: "order created", keep: "order created"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keep, r.Redact(tt.in))
		})
	}
}

func TestRedactingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactor().Wrap(&buf)

	_, err := w.Write([]byte("phone 081234567890 logged"))
	require.NoError(t, err)

	out := buf.String()
	assert.False(t, strings.Contains(out, "081234567890"), "phone should be redacted, got %q", out)
	assert.Contains(t, out, "[REDACTED]")
}
