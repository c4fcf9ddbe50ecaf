package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the service configuration.
const (
	DefaultPort           = "3000"
	DefaultDatabaseDriver = "sqlite"
	DefaultDatabaseURL    = "beacon.db"
	DefaultTokenTTL       = time.Hour
	DefaultAPIKeyCost     = 10
)

// Config holds everything the binary needs to start.
type Config struct {
	// Port is the HTTP listen port.
	Port string `yaml:"port"`

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
}

type DatabaseConfig struct {
	// Driver is one of: postgres | sqlite.
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type AuthConfig struct {
	// JWTSecret signs bearer tokens issued by /auth/token/.
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is the lifetime of an issued bearer token.
	TokenTTL time.Duration `yaml:"token_ttl"`

	// APIKeyCost is the bcrypt cost used when hashing new API keys.
	APIKeyCost int `yaml:"api_key_cost"`
}

// Load builds the configuration from defaults, the optional YAML file at path
// and finally the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse yaml: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port: DefaultPort,
		Database: DatabaseConfig{
			Driver: DefaultDatabaseDriver,
			URL:    DefaultDatabaseURL,
		},
		Auth: AuthConfig{
			TokenTTL:   DefaultTokenTTL,
			APIKeyCost: DefaultAPIKeyCost,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.APIKeyCost = getEnvInt("API_KEY_COST", cfg.Auth.APIKeyCost)
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("port %q is out of range [1, 65535]", cfg.Port)
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q unknown: want postgres|sqlite", cfg.Database.Driver)
	}

	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (JWT_SECRET)")
	}

	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	if cfg.Auth.APIKeyCost < 4 || cfg.Auth.APIKeyCost > 31 {
		return fmt.Errorf("auth.api_key_cost %d is out of range [4, 31]", cfg.Auth.APIKeyCost)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return fallback
}
