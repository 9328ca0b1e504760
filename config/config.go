// Package config loads InstaPics settings from an optional config.yml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageInMemory = "inmemory"
	StorageRedis    = "redis"
	StorageMongo    = "mongo"
	StorageCached   = "cached"

	TwoFactorRandom = "random"
	TwoFactorOff    = "off"
	TwoFactorAlways = "always"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	StorageMode    string        `mapstructure:"STORAGE_MODE"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	MongoURL       string        `mapstructure:"MONGO_URL"`
	MongoDBName    string        `mapstructure:"MONGO_DB_NAME"`
	UploadLatency  time.Duration `mapstructure:"UPLOAD_LATENCY"`
	VerifyLatency  time.Duration `mapstructure:"VERIFY_LATENCY"`
	TwoFactor      string        `mapstructure:"TWO_FACTOR"`
	MaxUploadBytes int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	StoreCacheSize int           `mapstructure:"STORE_CACHE_SIZE"`
	ChallengeTTL   time.Duration `mapstructure:"CHALLENGE_TTL"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE_MODE", StorageInMemory)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("MONGO_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "instapics")
	v.SetDefault("UPLOAD_LATENCY", "1500ms")
	v.SetDefault("VERIFY_LATENCY", "1500ms")
	v.SetDefault("TWO_FACTOR", TwoFactorRandom)
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("STORE_CACHE_SIZE", 1024)
	v.SetDefault("CHALLENGE_TTL", "10m")
	v.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig reads config.yml from the working directory or its parent, if
// present, then lets environment variables override it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.StorageMode = strings.ToLower(strings.TrimSpace(config.StorageMode))
	config.TwoFactor = strings.ToLower(strings.TrimSpace(config.TwoFactor))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.StorageMode {
	case StorageInMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for redis storage")
		}
	case StorageMongo, StorageCached:
		if c.MongoURL == "" || c.MongoDBName == "" {
			return errors.New("MONGO_URL and MONGO_DB_NAME are required for mongo storage")
		}
		if c.StorageMode == StorageCached && c.RedisURL == "" {
			return errors.New("REDIS_URL is required for cached storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q", c.StorageMode)
	}
	switch c.TwoFactor {
	case TwoFactorRandom, TwoFactorOff, TwoFactorAlways:
	default:
		return fmt.Errorf("unknown TWO_FACTOR %q", c.TwoFactor)
	}
	if c.UploadLatency < 0 || c.VerifyLatency < 0 {
		return errors.New("latencies must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.StoreCacheSize <= 0 {
		return errors.New("STORE_CACHE_SIZE must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
