package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultEnvPath = ".env"

// Config holds all configuration for the application
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Reddit RedditConfig `mapstructure:"reddit"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// RedditConfig holds Reddit API configuration
type RedditConfig struct {
	ClientID             string        `mapstructure:"client_id"`
	ClientSecret         string        `mapstructure:"client_secret"`
	UserAgent            string        `mapstructure:"user_agent"`
	MaxRequestsPerMinute int           `mapstructure:"max_requests_per_minute"` // multiplied by 10 for reddit's 10-minute window
	DefaultLimit         int           `mapstructure:"default_limit"`
	MaxLimit             int           `mapstructure:"max_limit"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	DSN     string        `mapstructure:"dsn"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port              int `mapstructure:"port"`
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from a .env file, an optional config file and
// the environment. Environment variables take precedence over the config file,
// e.g. REDDIT_CLIENT_ID overrides reddit.client_id.
func LoadConfig(envPath, configFile string, log *logrus.Logger) (*Config, error) {
	if err := loadEnvFile(envPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DATABASE_PATH is the older name for the sqlite path
	if err := v.BindEnv("cache.dsn", "CACHE_DSN", "DATABASE_PATH"); err != nil {
		return nil, fmt.Errorf("failed to bind cache.dsn: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".reddit-wrapped")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"env_file":    envPath,
		"config_file": v.ConfigFileUsed(),
	}).Info("Config loaded successfully")
	return &config, nil
}

// loadEnvFile loads envPath into the environment. The default .env file may be
// missing; an explicitly named one may not.
func loadEnvFile(envPath string) error {
	explicit := envPath != ""
	if !explicit {
		envPath = defaultEnvPath
	}

	if err := godotenv.Load(envPath); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Reddit Wrapped")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.user_agent", "")
	v.SetDefault("reddit.max_requests_per_minute", 100)
	v.SetDefault("reddit.default_limit", 500)
	v.SetDefault("reddit.max_limit", 1000)
	v.SetDefault("reddit.timeout", "30s")

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.dsn", "./wrapped.db")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_minute", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Reddit.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("REDDIT_MAX_REQUESTS_PER_MINUTE must be positive")
	}
	if config.Reddit.DefaultLimit < 1 {
		return fmt.Errorf("REDDIT_DEFAULT_LIMIT must be positive")
	}
	if config.Reddit.MaxLimit < config.Reddit.DefaultLimit {
		return fmt.Errorf("REDDIT_MAX_LIMIT must be at least REDDIT_DEFAULT_LIMIT")
	}
	if config.Reddit.Timeout <= 0 {
		return fmt.Errorf("REDDIT_TIMEOUT must be positive")
	}
	if config.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if config.Server.RequestsPerMinute < 1 {
		return fmt.Errorf("SERVER_REQUESTS_PER_MINUTE must be positive")
	}

	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// ValidateRedditCredentials checks the settings needed to call the Reddit API
func (c *Config) ValidateRedditCredentials() error {
	if c.Reddit.ClientID == "" {
		return fmt.Errorf("REDDIT_CLIENT_ID environment variable is required")
	}
	if c.Reddit.ClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_SECRET environment variable is required")
	}

	// User-Agent required per API documentation; it has strict requirements. see example.env
	if c.Reddit.UserAgent == "" {
		return fmt.Errorf("REDDIT_USER_AGENT environment variable is required")
	}
	return nil
}
