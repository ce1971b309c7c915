package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig holds draw feed client configuration
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ProfileConfig describes the user being evaluated and how forecasts are made
type ProfileConfig struct {
	Score      int           `mapstructure:"score"`
	Mode       string        `mapstructure:"mode"`
	Categories []string      `mapstructure:"categories"` // Empty means every category in the feed
	Lookback   time.Duration `mapstructure:"lookback"`   // 0 keeps the full history
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds SQLite persistence configuration
type StorageConfig struct {
	DBPath               string `mapstructure:"db_path"`
	MaxRoundsPerCategory int    `mapstructure:"max_rounds_per_category"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MaxScore is the conventional upper bound of a user score.
const MaxScore = 1200

// Load reads configuration from file and environment variables.
// Environment variables use the DRAWCAST_ prefix with dots replaced by underscores,
// e.g. DRAWCAST_PROFILE_SCORE.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("DRAWCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.poll_interval", "6h")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay_base", "1s")

	// Profile defaults
	v.SetDefault("profile.mode", "linear")
	v.SetDefault("profile.lookback", "0s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/drawcast.db")
	v.SetDefault("storage.max_rounds_per_category", 500)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Feed config
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Feed.PollInterval < 1*time.Minute {
		return fmt.Errorf("feed.poll_interval must be at least 1 minute")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive")
	}

	// Validate Profile config
	if c.Profile.Score < 0 || c.Profile.Score > MaxScore {
		return fmt.Errorf("profile.score must be between 0 and %d", MaxScore)
	}
	validModes := map[string]bool{"off": true, "linear": true, "moving-average": true, "polynomial": true}
	if !validModes[c.Profile.Mode] {
		return fmt.Errorf("profile.mode must be one of: off, linear, moving-average, polynomial")
	}
	if c.Profile.Lookback < 0 {
		return fmt.Errorf("profile.lookback must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxRoundsPerCategory < 10 {
		return fmt.Errorf("storage.max_rounds_per_category must be at least 10")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
