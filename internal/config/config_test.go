package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-profiles/pkg/engine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "data", cfg.FileName)
	assert.Equal(t, ".json", cfg.FileExtension)
	assert.Equal(t, ".bak", cfg.BackupExtension)
	assert.Equal(t, "7001", cfg.Port)
	assert.Equal(t, "7002", cfg.HTTPPort)
	assert.False(t, cfg.Obfuscate)

	ec := cfg.EngineConfig()
	assert.Nil(t, ec.ObfuscationKey)

	s, err := engine.New[map[string]any](ec)
	require.NoError(t, err)
	assert.Equal(t, []byte(engine.DefaultObfuscationKey), s.Config().ObfuscationKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CELERIX_DATA_DIR", "/var/lib/saves")
	t.Setenv("CELERIX_FILE_EXT", ".sav")
	t.Setenv("CELERIX_OBFUSCATE", "true")
	t.Setenv("CELERIX_OBFUSCATION_KEY", "secret-ish")
	t.Setenv("CELERIX_CODEC", "yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Obfuscate)

	ec := cfg.EngineConfig()
	assert.Equal(t, "/var/lib/saves", ec.DataDir)
	assert.Equal(t, ".sav", ec.FileExtension)
	assert.Equal(t, []byte("secret-ish"), ec.ObfuscationKey)

	opts, err := cfg.StoreOptions(nil)
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("CELERIX_OBFUSCATE", "not-a-bool")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestInvalidCodecAndLevel(t *testing.T) {
	cfg := Config{Codec: "xml", LogLevel: "info"}
	_, err := cfg.StoreOptions(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	cfg.LogLevel = "shout"
	_, err = cfg.Logger(&bytes.Buffer{})
	assert.Error(t, err)
}

func TestLoggerWrites(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "debug", LogFormat: "json"}

	log, err := cfg.Logger(&buf)
	require.NoError(t, err)
	log.Debug("hello", "profile_id", "p1")
	assert.Contains(t, buf.String(), `"profile_id":"p1"`)
}
