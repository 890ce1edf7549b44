package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bakeplan/pkg/infrastructure/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "WARN"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Int64("product_id", 4).Msg("product has no recipe")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "buffers are not terminals, JSON is expected")
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "bakeplan", entry["service"])
	assert.Equal(t, float64(4), entry["product_id"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Format: FormatConsole}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("reconciliation finished")

	assert.Contains(t, buf.String(), "reconciliation finished")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
