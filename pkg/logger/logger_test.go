package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONSharesPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	log.Info().Str("sku", "PEN-1").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "PEN-1", entry["sku"])
	assert.Equal(t, "restock-engine", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	SetLevel("warn")
	Log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	SetLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
