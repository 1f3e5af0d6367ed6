package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds defaults read from the environment. Flags override them.
type EnvConfig struct {
	Format   string `env:"STATEBOX_FORMAT" envDefault:"text"`
	Database string `env:"STATEBOX_DB"`
	Verbose  bool   `env:"STATEBOX_VERBOSE"`
}

// LoadEnvConfig parses EnvConfig from the process environment.
func LoadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{Format: "text"}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// newLogger returns a text logger at Info level, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
