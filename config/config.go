// Package config provides configuration loading and management for semprofile.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semprofile/export"
	"github.com/c360studio/semprofile/storage"
)

// Store backends.
const (
	BackendMemory  = "memory"
	BackendGraphQL = "graphql"
	BackendKV      = "kv"
)

// Config represents the complete semprofile configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Store      StoreConfig      `yaml:"store" envPrefix:"STORE_"`
	NATS       NATSConfig       `yaml:"nats" envPrefix:"NATS_"`
	Visibility VisibilityConfig `yaml:"visibility" envPrefix:"VISIBILITY_"`

	// RuntimeProperties is an optional Java-style properties file whose
	// entries are merged beneath Properties.
	RuntimeProperties string `yaml:"runtime_properties,omitempty" env:"RUNTIME_PROPERTIES"`

	// Properties holds application properties keyed by dotted name
	// (e.g. "selfEditing.idMatchingProperty").
	Properties map[string]string `yaml:"properties,omitempty"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr" env:"ADDR"`
	// ContextPath is the deployment prefix prepended to every generated URL
	ContextPath string `yaml:"context_path" env:"CONTEXT_PATH"`
	// DefaultNamespace makes individuals in this namespace use /display/<name> URLs
	DefaultNamespace string `yaml:"default_namespace" env:"DEFAULT_NAMESPACE"`
	// TrustForwardedHeaders honours X-Forwarded-Proto and X-Forwarded-Host
	TrustForwardedHeaders bool `yaml:"trust_forwarded_headers" env:"TRUST_FORWARDED_HEADERS"`
	// ReadTimeout bounds reading a request
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// WriteTimeout bounds writing a response
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// StoreConfig selects and configures the individual store
type StoreConfig struct {
	// Backend is one of memory, graphql, kv
	Backend string `yaml:"backend" env:"BACKEND"`
	// FixturePath is a YAML fixture loaded by the memory backend
	FixturePath string `yaml:"fixture_path,omitempty" env:"FIXTURE_PATH"`
	// GatewayURL is the graph gateway GraphQL endpoint
	GatewayURL string `yaml:"gateway_url,omitempty" env:"GATEWAY_URL"`
	// Bucket is the JetStream KV bucket holding entity states
	Bucket string `yaml:"bucket,omitempty" env:"BUCKET"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (required by the kv backend and seeding)
	URL string `yaml:"url" env:"URL"`
	// ExportFormat enables the rdf-export stream in serve when set
	ExportFormat string `yaml:"export_format,omitempty" env:"EXPORT_FORMAT"`
}

// VisibilityConfig configures property display rules
type VisibilityConfig struct {
	// ViewerLevel is the level anonymous page requests are served at
	ViewerLevel string `yaml:"viewer_level" env:"VIEWER_LEVEL"`
	// Rules are evaluated in order; the first matching pattern wins
	Rules []VisibilityRuleConfig `yaml:"rules,omitempty"`
}

// VisibilityRuleConfig is a single property display rule
type VisibilityRuleConfig struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	MinLevel string `yaml:"min_level" json:"min_level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ContextPath:  "",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Bucket:  storage.DefaultEntityBucket,
		},
		NATS: NATSConfig{
			URL: "",
		},
		Visibility: VisibilityConfig{
			ViewerLevel: storage.LevelPublic.String(),
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ContextPath != "" && !strings.HasPrefix(c.Server.ContextPath, "/") {
		return fmt.Errorf("server.context_path must start with /")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendGraphQL:
		if c.Store.GatewayURL == "" {
			return fmt.Errorf("store.gateway_url is required for the graphql backend")
		}
	case BackendKV:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for the kv backend")
		}
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the kv backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not one of memory, graphql, kv", c.Store.Backend)
	}
	if c.NATS.ExportFormat != "" {
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for nats.export_format")
		}
		if _, err := export.ParseFormat(c.NATS.ExportFormat); err != nil {
			return fmt.Errorf("nats.export_format: %w", err)
		}
	}
	if _, _, err := c.Visibility.Policy(); err != nil {
		return err
	}
	return nil
}

// Policy builds the visibility policy and the configured viewer level.
func (v VisibilityConfig) Policy() (*storage.VisibilityPolicy, storage.Level, error) {
	level := storage.LevelPublic
	if v.ViewerLevel != "" {
		l, err := storage.ParseLevel(v.ViewerLevel)
		if err != nil {
			return nil, 0, fmt.Errorf("visibility.viewer_level: %w", err)
		}
		level = l
	}

	rules := make([]storage.VisibilityRule, 0, len(v.Rules))
	for i, r := range v.Rules {
		minLevel, err := storage.ParseLevel(r.MinLevel)
		if err != nil {
			return nil, 0, fmt.Errorf("visibility.rules[%d]: %w", i, err)
		}
		rules = append(rules, storage.VisibilityRule{Pattern: r.Pattern, MinLevel: minLevel})
	}
	policy, err := storage.NewVisibilityPolicy(rules)
	if err != nil {
		return nil, 0, fmt.Errorf("visibility.rules: %w", err)
	}
	return policy, level, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ContextPath != "" {
		c.Server.ContextPath = other.Server.ContextPath
	}
	if other.Server.DefaultNamespace != "" {
		c.Server.DefaultNamespace = other.Server.DefaultNamespace
	}
	if other.Server.TrustForwardedHeaders {
		c.Server.TrustForwardedHeaders = true
	}
	if other.Server.ReadTimeout != 0 {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}
	if other.Server.WriteTimeout != 0 {
		c.Server.WriteTimeout = other.Server.WriteTimeout
	}

	// Store
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.FixturePath != "" {
		c.Store.FixturePath = other.Store.FixturePath
	}
	if other.Store.GatewayURL != "" {
		c.Store.GatewayURL = other.Store.GatewayURL
	}
	if other.Store.Bucket != "" {
		c.Store.Bucket = other.Store.Bucket
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.ExportFormat != "" {
		c.NATS.ExportFormat = other.NATS.ExportFormat
	}

	// Visibility
	if other.Visibility.ViewerLevel != "" {
		c.Visibility.ViewerLevel = other.Visibility.ViewerLevel
	}
	if len(other.Visibility.Rules) > 0 {
		c.Visibility.Rules = other.Visibility.Rules
	}

	// Properties merge key by key
	if other.RuntimeProperties != "" {
		c.RuntimeProperties = other.RuntimeProperties
	}
	if len(other.Properties) > 0 {
		if c.Properties == nil {
			c.Properties = make(map[string]string, len(other.Properties))
		}
		for k, v := range other.Properties {
			c.Properties[k] = v
		}
	}
}
