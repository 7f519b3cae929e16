// Package config loads listingopt settings from a YAML file, LISTINGOPT_*
// environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LISTINGOPT_SERVER_PORT.
const EnvPrefix = "LISTINGOPT"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LLMConfig selects and tunes the completion provider. The API key is
// checked when the provider is first used, not here.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Stream      bool          `mapstructure:"stream"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ScraperConfig controls how product pages are fetched.
type ScraperConfig struct {
	FetchMode     string        `mapstructure:"fetch_mode"` // "browser", "static" or "solver"
	DefaultRegion string        `mapstructure:"default_region"`
	BaseURL       string        `mapstructure:"base_url"` // overrides the region URL, e.g. a caching proxy
	UserAgent     string        `mapstructure:"user_agent"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	ChromePath    string        `mapstructure:"chrome_path"`
	Stealth       bool          `mapstructure:"stealth"`
	Headless      bool          `mapstructure:"headless"`
	SolverURL     string        `mapstructure:"solver_url"` // FlareSolverr endpoint, e.g. http://localhost:8191/v1
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"` // "sqlite" or "libsql"
	DSN       string `mapstructure:"dsn"`
	CacheSize int    `mapstructure:"cache_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute per client IP, 0 disables
	Burst int `mapstructure:"burst"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	JSON  bool `mapstructure:"json"`
}

// providerEnvKeys maps providers to the conventional environment variable
// holding their API key.
var providerEnvKeys = map[string]string{
	"groq":       "GROQ_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// ProviderEnvKey returns the environment variable conventionally holding the
// key for provider, or "" when the provider needs none.
func ProviderEnvKey(provider string) string {
	return providerEnvKeys[strings.ToLower(provider)]
}

// Load reads configuration. An empty path searches ./listingopt.yaml,
// $HOME/.listingopt.yaml and /etc/listingopt/; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("listingopt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath("/etc/listingopt/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.APIKey == "" {
		if env := ProviderEnvKey(cfg.LLM.Provider); env != "" {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.stream", false)
	v.SetDefault("llm.timeout", "90s")

	v.SetDefault("scraper.fetch_mode", "browser")
	v.SetDefault("scraper.default_region", "IN")
	v.SetDefault("scraper.base_url", "")
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.nav_timeout", "30s")
	v.SetDefault("scraper.settle_delay", "3s")
	v.SetDefault("scraper.chrome_path", "")
	v.SetDefault("scraper.stealth", true)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.solver_url", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "listingopt.db")
	v.SetDefault("store.cache_size", 256)

	v.SetDefault("ratelimit.per_ip", 30)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("log.debug", false)
	v.SetDefault("log.json", false)
}

func validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "groq", "openai", "openrouter", "anthropic", "ollama":
	default:
		return fmt.Errorf("llm.provider must be one of groq, openai, openrouter, anthropic, ollama, got: %s", cfg.LLM.Provider)
	}

	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got: %d", cfg.LLM.MaxTokens)
	}

	switch cfg.Scraper.FetchMode {
	case "browser", "static":
	case "solver":
		if cfg.Scraper.SolverURL == "" {
			return fmt.Errorf("scraper.solver_url is required when fetch_mode is 'solver'")
		}
	default:
		return fmt.Errorf("scraper.fetch_mode must be 'browser', 'static' or 'solver', got: %s", cfg.Scraper.FetchMode)
	}

	if cfg.Scraper.NavTimeout <= 0 {
		return fmt.Errorf("scraper.nav_timeout must be positive")
	}
	if cfg.Scraper.SettleDelay < 0 {
		return fmt.Errorf("scraper.settle_delay must not be negative")
	}

	switch cfg.Store.Driver {
	case "sqlite", "libsql":
	default:
		return fmt.Errorf("store.driver must be 'sqlite' or 'libsql', got: %s", cfg.Store.Driver)
	}

	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}

	return nil
}
