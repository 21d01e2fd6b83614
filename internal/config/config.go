package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Storage   StorageConfig   `mapstructure:"storage"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Draw      DrawConfig      `mapstructure:"draw"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedHosts    []string      `mapstructure:"allowed_hosts"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // mongodb | memory
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	AdminRole string `mapstructure:"admin_role"`
}

// LedgerConfig holds Points Ledger configuration
type LedgerConfig struct {
	Driver  string        `mapstructure:"driver"` // http | mongodb | memory
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	MockAPI bool          `mapstructure:"mock"`
}

// DrawConfig holds draw engine configuration
type DrawConfig struct {
	Timezone          string        `mapstructure:"timezone"`
	MaxStockRetries   int           `mapstructure:"max_stock_retries"`
	ActivityCacheSize int           `mapstructure:"activity_cache_size"`
	ActivityCacheTTL  time.Duration `mapstructure:"activity_cache_ttl"`
}

// SchedulerConfig holds cron specs for background jobs
type SchedulerConfig struct {
	ReconcileSpec string        `mapstructure:"reconcile_spec"`
	ExpireSpec    string        `mapstructure:"expire_spec"`
	ClaimWindow   time.Duration `mapstructure:"claim_window"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// Location resolves the reference timezone for daily draw caps
func (c DrawConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if _, err := c.Draw.Location(); err != nil {
		return fmt.Errorf("invalid draw.timezone %q: %w", c.Draw.Timezone, err)
	}
	if c.Draw.MaxStockRetries <= 0 {
		return fmt.Errorf("draw.max_stock_retries must be positive, got %d", c.Draw.MaxStockRetries)
	}
	switch c.Storage.Driver {
	case "mongodb", "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Ledger.Driver {
	case "http", "mongodb", "memory":
	default:
		return fmt.Errorf("unknown ledger.driver %q", c.Ledger.Driver)
	}
	if c.Ledger.Driver == "mongodb" && c.Storage.Driver != "mongodb" {
		return errors.New("ledger.driver mongodb requires storage.driver mongodb")
	}
	if c.Ledger.Driver == "http" && c.Ledger.BaseURL == "" && !c.Ledger.MockAPI {
		return errors.New("ledger.base_url is required unless ledger.mock is set")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.allowed_hosts", []string{"localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "prizedraw")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("storage.driver", "mongodb")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.admin_role", "admin")
	v.SetDefault("ledger.driver", "http")
	v.SetDefault("ledger.base_url", "")
	v.SetDefault("ledger.api_key", "")
	v.SetDefault("ledger.timeout", 5*time.Second)
	v.SetDefault("ledger.mock", false)
	v.SetDefault("draw.timezone", "Asia/Shanghai")
	v.SetDefault("draw.max_stock_retries", 3)
	v.SetDefault("draw.activity_cache_size", 256)
	v.SetDefault("draw.activity_cache_ttl", 5*time.Second)
	v.SetDefault("scheduler.reconcile_spec", "0 */1 * * * *")
	v.SetDefault("scheduler.expire_spec", "0 0 * * * *")
	v.SetDefault("scheduler.claim_window", 168*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
}
