package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	NewsAPIKey  string `mapstructure:"news_api_key"`
	GuardianKey string `mapstructure:"guardian_api_key"`
	NYTKey      string `mapstructure:"nyt_api_key"`

	PageSize           int           `mapstructure:"page_size"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	SortByPublished bool   `mapstructure:"sort_by_published"`
	EnrichImages    bool   `mapstructure:"enrich_images"`
	MetricsAddr     string `mapstructure:"metrics_addr"`
}

// String keeps API keys out of logs.
func (c Config) String() string {
	return fmt.Sprintf("app=%s env=%s log_level=%s sources_file=%s page_size=%d storage=%s",
		c.AppName, c.Env, c.LogLevel, c.SourcesFile, c.PageSize, c.StorageType)
}

// Redacted returns a copy safe to log as a structured object.
func (c Config) Redacted() Config {
	c.NewsAPIKey = redact(c.NewsAPIKey)
	c.GuardianKey = redact(c.GuardianKey)
	c.NYTKey = redact(c.NYTKey)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "samvad-newsfeed")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("news_api_key", "")
	v.SetDefault("guardian_api_key", "")
	v.SetDefault("nyt_api_key", "")
	v.SetDefault("page_size", 10)
	v.SetDefault("http_timeout_seconds", 10)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/preferences.db")
	v.SetDefault("sort_by_published", true)
	v.SetDefault("enrich_images", false)
	v.SetDefault("metrics_addr", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("invalid page_size (must be a positive integer)")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))

	return &cfg, nil
}
