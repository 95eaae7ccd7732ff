package sysutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":     zerolog.DebugLevel,
		"  DeBuG  ": zerolog.DebugLevel,
		"info":      zerolog.InfoLevel,
		"":          zerolog.InfoLevel,
		"warn":      zerolog.WarnLevel,
		"warning":   zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"fatal":     zerolog.FatalLevel,
		"panic":     zerolog.PanicLevel,
		"loud":      zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestConfigureLogging_JSON(t *testing.T) {
	origLevel, origLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLogger
	})

	var buf bytes.Buffer
	lvl := ConfigureLogging("warn", false, &buf)
	assert.Equal(t, zerolog.WarnLevel, lvl)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("dropped")
	log.Warn().Str("contact_id", "c1").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "crm", line["service"])
	assert.Equal(t, "c1", line["contact_id"])
}

func TestConfigureLogging_Pretty(t *testing.T) {
	origLevel, origLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLogger
	})

	var buf bytes.Buffer
	ConfigureLogging("info", true, &buf)
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "y", "On"} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "maybe"} {
		assert.False(t, IsTruthy(v), v)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty("", " \t"))
	assert.Equal(t, "", FirstNonEmpty())
}
