// Package config manages application configuration from defaults, an
// optional config.yaml, and CONVOCORE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all convocore
// components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  validate:"min=1s,max=10m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=1m"`
}

// GeminiConfig controls the inference component.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	Model             string  `mapstructure:"model"               validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string  `mapstructure:"system_instruction"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=300"`
}

// TelegramConfig controls the optional Telegram ingress. An empty token
// disables it.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// CacheConfig controls the optional Redis identity cache. An empty
// address disables it.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// SchedulerConfig controls scheduled background tasks.
type SchedulerConfig struct {
	MaintenanceEnabled  bool   `mapstructure:"maintenance_enabled"`
	MaintenanceSchedule string `mapstructure:"maintenance_schedule"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. a config file (path may be empty to use ./config.yaml)
// 3. CONVOCORE_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONVOCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow a missing config file; defaults plus env must suffice then.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.path", "convocore.db")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", 2*time.Minute)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 5)

	// Secrets and optional endpoints default to empty so the keys are
	// known to viper and CONVOCORE_* env vars can populate them even
	// without a config file.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("cache.redis_addr", "")

	v.SetDefault("cache.ttl", 15*time.Minute)

	v.SetDefault("scheduler.maintenance_enabled", true)
	v.SetDefault("scheduler.maintenance_schedule", "0 0 4 * * *")
}
