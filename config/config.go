// Package config loads the settings shared by the godm executors and
// collections from a file and GODM_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix of the environment variables read by [Load].
const EnvPrefix = "GODM"

// ErrInvalidSettings is returned by [Settings.Validate].
var ErrInvalidSettings = errors.New("invalid settings")

// Settings configures the MongoDB connection, logging and state management.
type Settings struct {
	// MongoURI is the connection string used by mongoexec.Open.
	MongoURI   string `mapstructure:"mongo_uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	// LogLevel is any level accepted by zap ("debug", "info", ...).
	LogLevel string `mapstructure:"log_level"`
	// SavePrevious keeps the replaced snapshot when records are saved.
	SavePrevious bool `mapstructure:"save_previous"`
	// ReplaceObjects makes changed sub documents be reported whole.
	ReplaceObjects        bool    `mapstructure:"replace_objects"`
	CorruptAlertThreshold float64 `mapstructure:"corrupt_alert_threshold"`
}

var defaults = map[string]any{
	"mongo_uri":               "mongodb://localhost:27017",
	"database":                "",
	"collection":              "",
	"log_level":               "info",
	"save_previous":           false,
	"replace_objects":         false,
	"corrupt_alert_threshold": 0.1,
}

// Load reads the settings in path, if path is not empty, and overrides them
// with environment variables such as GODM_MONGO_URI or GODM_LOG_LEVEL.
func Load(path string) (Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the log level and the corrupt alert threshold.
func (s Settings) Validate() error {
	if _, err := zap.ParseAtomicLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidSettings, err)
	}
	if s.CorruptAlertThreshold < 0 || s.CorruptAlertThreshold > 1 {
		return fmt.Errorf("%w: corrupt alert threshold %v is not between 0 and 1", ErrInvalidSettings, s.CorruptAlertThreshold)
	}
	return nil
}

// Logger builds a production zap logger at the configured level.
func (s Settings) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %w", ErrInvalidSettings, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	return cfg.Build()
}
