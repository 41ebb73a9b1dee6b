// Package config loads service configuration from file, environment, and
// defaults via viper.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// BackendConfig selects and configures the scoring backend variant.
type BackendConfig struct {
	Provider string `mapstructure:"provider"` // direct, remote, generative
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
}

// RerankConfig holds scoring behavior settings.
type RerankConfig struct {
	// Normalize applies sigmoid normalization unless a request opts out.
	Normalize bool `mapstructure:"normalize"`
	// Timeout bounds one backend dispatch.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxConcurrency limits concurrent per-query group dispatches within
	// one batch request.
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// ReadinessConfig holds readiness polling settings.
type ReadinessConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Attempts int           `mapstructure:"attempts"`
	Warmup   bool          `mapstructure:"warmup"`
}

// CacheConfig holds score cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("backend.provider", "direct")
	viper.SetDefault("backend.model", "")
	viper.SetDefault("backend.base_url", "")

	viper.SetDefault("rerank.normalize", true)
	viper.SetDefault("rerank.timeout", 30*time.Second)
	viper.SetDefault("rerank.max_concurrency", 4)

	viper.SetDefault("readiness.interval", 2*time.Second)
	viper.SetDefault("readiness.attempts", 30)
	viper.SetDefault("readiness.warmup", true)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.path", "./reranker-cache")
	viper.SetDefault("cache.ttl", time.Hour)
}

func overrideWithEnv(config *Config) {
	if model := os.Getenv("MODEL_NAME"); model != "" {
		config.Backend.Model = model
	}
	if url := os.Getenv("BACKEND_BASE_URL"); url != "" {
		config.Backend.BaseURL = url
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.Backend.APIKey == "" {
		config.Backend.APIKey = key
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
		config.Server.Port = viper.GetInt("server.port")
	}
}
