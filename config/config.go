package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store drivers accepted in store.driver
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Store     StoreConfig
	Sync      SyncConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SourceConfig holds the Open Food Facts client settings
type SourceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
}

// StoreConfig selects the catalog database
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite", "postgres" or "memory"
	DSN    string `mapstructure:"dsn"`
}

// SyncConfig holds the batch controls of the sync command
type SyncConfig struct {
	CacheDir       string   `mapstructure:"cache_dir"`
	StateDir       string   `mapstructure:"state_dir"`
	StartPage      int      `mapstructure:"start_page"`
	NbPages        int      `mapstructure:"nb_pages"`
	FromCache      bool     `mapstructure:"from_cache"`
	Strict         bool     `mapstructure:"strict"`
	CategoriesTags []string `mapstructure:"categories_tags"`
	HardReset      bool     `mapstructure:"hard_reset"`
	// Codes switches the run to single product sync for these codes
	Codes []string `mapstructure:"codes"`
}

// CacheConfig holds the search result cache settings
type CacheConfig struct {
	SearchTTL time.Duration `mapstructure:"search_ttl"` // 0 disables the cache
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// flagKeys maps command line flag names onto configuration keys
var flagKeys = map[string]string{
	"start-page":      "sync.start_page",
	"nb-pages":        "sync.nb_pages",
	"from-cache":      "sync.from_cache",
	"strict":          "sync.strict",
	"categories-tags": "sync.categories_tags",
	"hard-reset":      "sync.hard_reset",
	"code":            "sync.codes",
	"cache-dir":       "sync.cache_dir",
	"state-dir":       "sync.state_dir",
	"store-driver":    "store.driver",
	"store-dsn":       "store.dsn",
	"port":            "server.port",
	"log-level":       "log.level",
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads configuration with command line flags taking precedence.
// Only flags listed in flagKeys are bound; a "config" flag names an explicit config file.
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/purbeurre/")

	v.SetEnvPrefix("PURBEURRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("unable to bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Config file is optional; env vars and defaults are enough
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment when present.
// Variables already set are not overridden.
func loadEnvFile() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Source defaults
	v.SetDefault("source.base_url", "https://fr.openfoodfacts.org")
	v.SetDefault("source.user_agent", "PurBeurre/1.0")
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("source.requests_per_second", 1.0)
	v.SetDefault("source.burst", 5)
	v.SetDefault("source.max_attempts", 1)

	// Store defaults
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.dsn", "purbeurre.db")

	// Sync defaults
	v.SetDefault("sync.cache_dir", "data/json")
	v.SetDefault("sync.state_dir", "data")
	v.SetDefault("sync.start_page", 0)
	v.SetDefault("sync.nb_pages", 0)
	v.SetDefault("sync.from_cache", false)
	v.SetDefault("sync.strict", false)
	v.SetDefault("sync.categories_tags", []string{})
	v.SetDefault("sync.hard_reset", false)
	v.SetDefault("sync.codes", []string{})

	v.SetDefault("cache.search_ttl", "1m")
	v.SetDefault("ratelimit.per_ip", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Driver {
	case StoreSQLite, StorePostgres:
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required for driver '%s' (set PURBEURRE_STORE_DSN)", config.Store.Driver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store driver must be 'sqlite', 'postgres' or 'memory', got: %s", config.Store.Driver)
	}

	if config.Sync.CacheDir == "" {
		return fmt.Errorf("sync cache directory is required")
	}
	if config.Sync.StateDir == "" {
		return fmt.Errorf("sync state directory is required")
	}
	if config.Sync.StartPage < 0 {
		return fmt.Errorf("start page must not be negative, got: %d", config.Sync.StartPage)
	}
	if config.Sync.NbPages < 0 {
		return fmt.Errorf("page count must not be negative, got: %d", config.Sync.NbPages)
	}

	for _, code := range config.Sync.Codes {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("product codes must not be empty")
		}
	}

	if config.Source.BaseURL == "" {
		return fmt.Errorf("source base URL is required")
	}
	if config.Source.MaxAttempts < 1 {
		return fmt.Errorf("source max attempts must be at least 1, got: %d", config.Source.MaxAttempts)
	}

	if config.Cache.SearchTTL < 0 {
		return fmt.Errorf("search cache TTL must not be negative, got: %s", config.Cache.SearchTTL)
	}
	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("per-IP rate limit must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
