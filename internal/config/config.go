// Package config loads folkout settings from defaults, an optional TOML file
// and FOLKOUT_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/folkout/folkout/internal/account"
	"github.com/folkout/folkout/internal/assets"
	"github.com/folkout/folkout/internal/models"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore: FOLKOUT_SERVER__ADDR sets server.addr.
const EnvPrefix = "FOLKOUT_"

var ErrConfigFileNotFound = errors.New("config file not found")

type Config struct {
	Server    Server    `koanf:"server"`
	Database  Database  `koanf:"database"`
	Auth      Auth      `koanf:"auth"`
	Votes     Votes     `koanf:"votes"`
	Scheduler Scheduler `koanf:"scheduler"`
	Accounts  Accounts  `koanf:"accounts"`
	Assets    Assets    `koanf:"assets"`
	Log       Log       `koanf:"log"`
}

type Server struct {
	Addr         string `koanf:"addr" validate:"required"`
	StaticDir    string `koanf:"static_dir"`
	SecureCookie bool   `koanf:"secure_cookie"`
	MetricsPath  string `koanf:"metrics_path" validate:"omitempty,startswith=/"`
}

type Database struct {
	Path string `koanf:"path" validate:"required"`
}

type Auth struct {
	// JWTSecret signs session tokens. It has no default.
	JWTSecret  string `koanf:"jwt_secret" validate:"required,min=16"`
	BcryptCost int    `koanf:"bcrypt_cost" validate:"gte=4,lte=31"`
}

type Votes struct {
	DefaultDuration time.Duration `koanf:"default_duration" validate:"gt=0"`
}

type Scheduler struct {
	SweepInterval   time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	RetryMaxElapsed time.Duration `koanf:"retry_max_elapsed"`
	RetryMax        uint64        `koanf:"retry_max"`
}

type Accounts struct {
	GroupCapacity   int           `koanf:"group_capacity" validate:"gt=0"`
	ProbationPeriod time.Duration `koanf:"probation_period" validate:"gt=0"`
	DormantPeriod   time.Duration `koanf:"dormant_period" validate:"gt=0"`
	FirstLoginTTL   time.Duration `koanf:"first_login_ttl" validate:"gt=0"`
	SessionTTL      time.Duration `koanf:"session_ttl" validate:"gt=0"`
	SweepInterval   time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

type Assets struct {
	Type      string `koanf:"type" validate:"oneof=local s3"`
	LocalPath string `koanf:"local_path"`
	S3Bucket  string `koanf:"s3_bucket" validate:"required_if=Type s3"`
	S3Region  string `koanf:"s3_region" validate:"required_if=Type s3"`
	S3Prefix  string `koanf:"s3_prefix"`
}

type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

func defaults() map[string]any {
	acct := account.DefaultConfig()
	return map[string]any{
		"server.addr":                 ":8080",
		"server.static_dir":           "./static",
		"server.secure_cookie":        false,
		"server.metrics_path":         "/metrics",
		"database.path":               "./data/folkout.db",
		"auth.bcrypt_cost":            10,
		"votes.default_duration":      "72h",
		"scheduler.sweep_interval":    "1m",
		"scheduler.retry_max_elapsed": "30s",
		"scheduler.retry_max":         5,
		"accounts.group_capacity":     models.GroupCapacity,
		"accounts.probation_period":   acct.ProbationPeriod.String(),
		"accounts.dormant_period":     acct.DormantPeriod.String(),
		"accounts.first_login_ttl":    acct.FirstLoginTTL.String(),
		"accounts.session_ttl":        acct.SessionTTL.String(),
		"accounts.sweep_interval":     "24h",
		"assets.type":                 "local",
		"assets.local_path":           "./data/uploads",
		"log.level":                   "info",
	}
}

// Load builds the configuration. An empty path skips the file layer; a path
// that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks the settings the server needs to start.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AccountConfig converts the account lifetimes.
func (c *Config) AccountConfig() account.Config {
	return account.Config{
		ProbationPeriod: c.Accounts.ProbationPeriod,
		DormantPeriod:   c.Accounts.DormantPeriod,
		FirstLoginTTL:   c.Accounts.FirstLoginTTL,
		SessionTTL:      c.Accounts.SessionTTL,
	}
}

// AssetConfig converts the asset backend settings.
func (c *Config) AssetConfig() assets.Config {
	return assets.Config{
		Type:      assets.Type(c.Assets.Type),
		LocalPath: c.Assets.LocalPath,
		S3: assets.S3Config{
			Bucket: c.Assets.S3Bucket,
			Region: c.Assets.S3Region,
			Prefix: c.Assets.S3Prefix,
		},
	}
}
