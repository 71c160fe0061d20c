// Package config handles loading and validation of daemon configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/caarlos0/env/v11"

	"cartsync/internal/localstore"
	"cartsync/internal/remote"
)

// Config holds all daemon configuration.
// Environment determines whether the storefront key may come from Secret Manager (production).
type Config struct {
	// Server settings
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development" or "production"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`          // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string `env:"GCP_PROJECT"`

	Remote RemoteConfig
	Store  StoreConfig

	// Quiet period before a cart change is pushed to the remote store.
	PushDebounce time.Duration `env:"PUSH_DEBOUNCE" envDefault:"400ms"`
}

// RemoteConfig describes the remote cart and wishlist API.
type RemoteConfig struct {
	BaseURL   string        `env:"REMOTE_BASE_URL"`
	Timeout   time.Duration `env:"REMOTE_TIMEOUT" envDefault:"20s"`
	ChromeTLS bool          `env:"REMOTE_CHROME_TLS"`

	// StorefrontKey identifies this client to the remote store. In production
	// it is read from the Secret Manager secret named by StorefrontKeySecret.
	StorefrontKey       string `env:"STOREFRONT_KEY"`
	StorefrontKeySecret string `env:"STOREFRONT_KEY_SECRET"`
}

// StoreConfig selects the durable local store.
type StoreConfig struct {
	Backend string `env:"STORE_BACKEND" envDefault:"file"` // "memory", "file" or "sqlite"
	Path    string `env:"STORE_PATH" envDefault:".cartsync"`
}

// accessSecret reads the payload of a Secret Manager secret version.
// Replaced in tests.
var accessSecret = func(ctx context.Context, name string) ([]byte, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %s: %w", name, err)
	}
	return result.Payload.Data, nil
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	var cfg *Config
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		fromFile, err := loadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	} else {
		cfg = &Config{}
		if err := env.Parse(cfg); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.Remote.StorefrontKey == "" && cfg.Remote.StorefrontKeySecret != "" {
			if err := cfg.loadFromSecretManager(ctx); err != nil {
				return nil, fmt.Errorf("loading storefront key: %w", err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port         string `json:"port"`
		Environment  string `json:"environment"`
		LogLevel     string `json:"log_level"`
		GCPProject   string `json:"gcp_project"`
		PushDebounce string `json:"push_debounce"`
		Remote       struct {
			BaseURL             string `json:"base_url"`
			Timeout             string `json:"timeout"`
			ChromeTLS           bool   `json:"chrome_tls"`
			StorefrontKey       string `json:"storefront_key"`
			StorefrontKeySecret string `json:"storefront_key_secret"`
		} `json:"remote"`
		Store struct {
			Backend string `json:"backend"`
			Path    string `json:"path"`
		} `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	debounce, err := durationOrDefault(fileConfig.PushDebounce, 400*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid push_debounce: %w", err)
	}
	timeout, err := durationOrDefault(fileConfig.Remote.Timeout, 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid remote.timeout: %w", err)
	}

	return &Config{
		Port:         withDefault(fileConfig.Port, "8080"),
		Environment:  withDefault(fileConfig.Environment, "development"),
		LogLevel:     withDefault(fileConfig.LogLevel, "info"),
		GCPProject:   fileConfig.GCPProject,
		PushDebounce: debounce,
		Remote: RemoteConfig{
			BaseURL:             fileConfig.Remote.BaseURL,
			Timeout:             timeout,
			ChromeTLS:           fileConfig.Remote.ChromeTLS,
			StorefrontKey:       fileConfig.Remote.StorefrontKey,
			StorefrontKeySecret: fileConfig.Remote.StorefrontKeySecret,
		},
		Store: StoreConfig{
			Backend: withDefault(fileConfig.Store.Backend, localstore.KindFile),
			Path:    withDefault(fileConfig.Store.Path, ".cartsync"),
		},
	}, nil
}

// loadFromSecretManager fetches the storefront key from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.Remote.StorefrontKeySecret)

	data, err := accessSecret(ctx, secretName)
	if err != nil {
		return err
	}
	c.Remote.StorefrontKey = string(data)
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("REMOTE_BASE_URL is required")
	}
	normalized, err := remote.NormalizeBaseURL(c.Remote.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid REMOTE_BASE_URL: %w", err)
	}
	c.Remote.BaseURL = normalized

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	if c.PushDebounce <= 0 {
		return fmt.Errorf("PUSH_DEBOUNCE must be positive")
	}

	switch c.Store.Backend {
	case localstore.KindMemory, localstore.KindFile, localstore.KindSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, file or sqlite, got %q", c.Store.Backend)
	}
	if c.Store.Backend != localstore.KindMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required for the %s backend", c.Store.Backend)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

func durationOrDefault(val string, defaultVal time.Duration) (time.Duration, error) {
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}
