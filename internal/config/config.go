// Package config loads daemon, CLI and embedded-store settings from the environment.
package config

import (
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"

	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/logging"
)

// Config holds every CELERIX_* setting.
type Config struct {
	DataDir         string `env:"CELERIX_DATA_DIR" envDefault:"./data"`
	FileName        string `env:"CELERIX_FILE_NAME" envDefault:"data"`
	FileExtension   string `env:"CELERIX_FILE_EXT" envDefault:".json"`
	BackupExtension string `env:"CELERIX_BACKUP_EXT" envDefault:".bak"`
	Codec           string `env:"CELERIX_CODEC" envDefault:"json"`
	Obfuscate       bool   `env:"CELERIX_OBFUSCATE" envDefault:"false"`
	ObfuscationKey  string `env:"CELERIX_OBFUSCATION_KEY"`

	Port       string `env:"CELERIX_PORT" envDefault:"7001"`
	HTTPPort   string `env:"CELERIX_HTTP_PORT" envDefault:"7002"`
	DisableTLS bool   `env:"CELERIX_DISABLE_TLS" envDefault:"false"`
	StoreAddr  string `env:"CELERIX_STORE_ADDR"`

	LogLevel  string `env:"CELERIX_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CELERIX_LOG_FORMAT" envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EngineConfig returns the store settings. An empty key selects the default key.
func (c Config) EngineConfig() engine.Config {
	cfg := engine.Config{
		DataDir:         c.DataDir,
		FileName:        c.FileName,
		FileExtension:   c.FileExtension,
		BackupExtension: c.BackupExtension,
	}
	if c.ObfuscationKey != "" {
		cfg.ObfuscationKey = []byte(c.ObfuscationKey)
	}
	return cfg
}

// Logger builds the configured slog logger writing to w.
func (c Config) Logger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewSlogLogger(level, c.LogFormat, w), nil
}

// StoreOptions returns the engine options for the configured codec and logger.
func (c Config) StoreOptions(log logging.Logger) ([]engine.Option, error) {
	codec, err := engine.CodecByName(c.Codec)
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithCodec(codec), engine.WithLogger(log)}, nil
}
