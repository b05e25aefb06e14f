// Package config reads bridge settings from BRIDGE_* environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/danielpatrickdp/neural-bridge/internal/batch"
	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
)

// #region types
// Config is the process-level configuration shared by the cmds.
type Config struct {
	DBPath  string `json:"db_path" env:"BRIDGE_DB" envDefault:"neural_bridge.db"`
	Listen  string `json:"listen" env:"BRIDGE_LISTEN" envDefault:"localhost:50061"`
	Backend string `json:"backend" env:"BRIDGE_BACKEND" envDefault:"accelerated"`

	MinScore           float64 `json:"min_score" env:"BRIDGE_MIN_SCORE" envDefault:"0.70"`
	PremiumScore       float64 `json:"premium_score" env:"BRIDGE_PREMIUM_SCORE" envDefault:"0.97"`
	MaxAlignmentLoss   float64 `json:"max_alignment_loss" env:"BRIDGE_MAX_ALIGNMENT_LOSS" envDefault:"0"`
	MaxContrastiveLoss float64 `json:"max_contrastive_loss" env:"BRIDGE_MAX_CONTRASTIVE_LOSS" envDefault:"2.0"`

	BatchSize int `json:"batch_size" env:"BRIDGE_BATCH_SIZE" envDefault:"32"`
	Workers   int `json:"workers" env:"BRIDGE_WORKERS" envDefault:"0"` // 0 = GOMAXPROCS

	// BRIDGE_LOG empty logs to stderr. Sizes are megabytes, ages days.
	Log           string `json:"log,omitempty" env:"BRIDGE_LOG"`
	LogMaxSize    int    `json:"log_max_size" env:"BRIDGE_LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `json:"log_max_backups" env:"BRIDGE_LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAge     int    `json:"log_max_age" env:"BRIDGE_LOG_MAX_AGE" envDefault:"28"`
	LogLocalTime  bool   `json:"log_local_time" env:"BRIDGE_LOG_LOCAL_TIME" envDefault:"true"`
}

// #endregion types

// #region load
// Load parses the process environment.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom overlays envfile onto the environment, then parses it. A missing
// file is not an error.
func LoadFrom(envfile string) (Config, error) {
	if envfile == "" {
		return Load()
	}
	file, err := filepath.Abs(envfile)
	if err != nil {
		return Config{}, fmt.Errorf("resolve %s: %w", envfile, err)
	}
	if err := godotenv.Overload(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", file, err)
	}
	return Load()
}

// Validate checks thresholds and the backend name.
func (c Config) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("BRIDGE_MIN_SCORE %.4f outside [0, 1]", c.MinScore)
	}
	if c.PremiumScore < c.MinScore {
		return fmt.Errorf("BRIDGE_PREMIUM_SCORE %.4f below BRIDGE_MIN_SCORE %.4f", c.PremiumScore, c.MinScore)
	}
	if c.MaxAlignmentLoss < 0 || c.MaxContrastiveLoss <= 0 {
		return fmt.Errorf("invalid loss caps (alignment %.4f, contrastive %.4f)", c.MaxAlignmentLoss, c.MaxContrastiveLoss)
	}
	if c.BatchSize < 0 || c.Workers < 0 {
		return fmt.Errorf("batch size %d and workers %d must not be negative", c.BatchSize, c.Workers)
	}
	if _, err := compute.ParseKind(c.Backend); err != nil {
		return err
	}
	return nil
}

// #endregion load

// #region derived
// BackendKind is the parsed BRIDGE_BACKEND value.
func (c Config) BackendKind() compute.Kind {
	k, _ := compute.ParseKind(c.Backend)
	return k
}

// BridgeConfig builds the engine configuration.
func (c Config) BridgeConfig() bridge.Config {
	cfg := bridge.DefaultConfig()
	cfg.MinScore = c.MinScore
	cfg.PremiumScore = c.PremiumScore
	cfg.Batch = batch.Config{BatchSize: c.BatchSize, Workers: c.Workers}
	return cfg
}

// GateConfig builds the acceptance gate configuration.
func (c Config) GateConfig() gate.Config {
	return gate.Config{
		MinScore:           c.MinScore,
		PremiumScore:       c.PremiumScore,
		MaxAlignmentLoss:   c.MaxAlignmentLoss,
		MaxContrastiveLoss: c.MaxContrastiveLoss,
	}
}

// #endregion derived

// #region log
// OpenLog returns a rotating writer for BRIDGE_LOG, or nil when it is unset.
func OpenLog(c Config) io.WriteCloser {
	if c.Log == "" {
		return nil
	}
	logfile, err := filepath.Abs(c.Log)
	if err != nil {
		logfile = c.Log
	}
	return &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
		LocalTime:  c.LogLocalTime,
	}
}

// #endregion log
