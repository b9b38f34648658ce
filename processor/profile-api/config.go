package profileapi

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semprofile/config"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semstreams/component"
)

// profileAPISchema defines the configuration schema.
var profileAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the profile-api component.
type Config struct {
	// ContextPath is prepended to every generated URL.
	ContextPath string `json:"context_path" schema:"type:string,description:Application mount point for generated URLs,category:basic"`

	// DefaultNamespace gives individuals in it short /display/<name> profile URLs.
	DefaultNamespace string `json:"default_namespace" schema:"type:string,description:Namespace of locally minted individuals,category:basic"`

	// TrustForwardedHeaders honours X-Forwarded-Proto and X-Forwarded-Host.
	TrustForwardedHeaders bool `json:"trust_forwarded_headers" schema:"type:bool,description:Use proxy headers for the external URL,category:advanced,default:false"`

	// Backend selects the individual store: memory, graphql or kv.
	Backend string `json:"backend" schema:"type:string,description:Individual store backend (memory graphql kv),category:basic,default:memory"`

	// FixturePath is a YAML fixture for the memory backend.
	FixturePath string `json:"fixture_path,omitempty" schema:"type:string,description:YAML fixture loaded by the memory backend,category:basic"`

	// GraphGatewayURL is the graph gateway GraphQL endpoint.
	GraphGatewayURL string `json:"graph_gateway_url,omitempty" schema:"type:string,description:Graph gateway GraphQL endpoint,category:basic"`

	// EntityBucket is the JetStream KV bucket of entity states.
	EntityBucket string `json:"entity_bucket" schema:"type:string,description:KV bucket holding entity states,category:basic,default:ENTITY_STATES"`

	// ViewerLevel is the visibility level pages are rendered at.
	ViewerLevel string `json:"viewer_level" schema:"type:string,description:Visibility level of anonymous viewers,category:basic,default:public"`

	// Visibility rules restrict properties to higher viewer levels.
	Visibility []config.VisibilityRuleConfig `json:"visibility,omitempty" schema:"type:array,description:Ordered property visibility rules,category:advanced"`

	// Properties are application properties such as selfEditing.idMatchingProperty.
	Properties map[string]string `json:"properties,omitempty" schema:"type:object,description:Application properties,category:advanced"`

	// QRCodeSize is the edge length of exported QR PNGs.
	QRCodeSize int `json:"qr_code_size" schema:"type:int,description:QR code PNG size in pixels,category:advanced,default:256"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Backend:      config.BackendMemory,
		EntityBucket: storage.DefaultEntityBucket,
		ViewerLevel:  storage.LevelPublic.String(),
		QRCodeSize:   256,
	}
}

// FromAppConfig derives the component configuration from the application
// configuration.
func FromAppConfig(cfg *config.Config) Config {
	return Config{
		ContextPath:           cfg.Server.ContextPath,
		DefaultNamespace:      cfg.Server.DefaultNamespace,
		TrustForwardedHeaders: cfg.Server.TrustForwardedHeaders,
		Backend:               cfg.Store.Backend,
		FixturePath:           cfg.Store.FixturePath,
		GraphGatewayURL:       cfg.Store.GatewayURL,
		EntityBucket:          cfg.Store.Bucket,
		ViewerLevel:           cfg.Visibility.ViewerLevel,
		Visibility:            cfg.Visibility.Rules,
		Properties:            cfg.Properties,
		QRCodeSize:            256,
	}
}

// applyDefaults fills unset fields from DefaultConfig.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.EntityBucket == "" {
		c.EntityBucket = defaults.EntityBucket
	}
	if c.ViewerLevel == "" {
		c.ViewerLevel = defaults.ViewerLevel
	}
	if c.QRCodeSize == 0 {
		c.QRCodeSize = defaults.QRCodeSize
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case config.BackendMemory:
	case config.BackendGraphQL:
		if c.GraphGatewayURL == "" {
			return fmt.Errorf("graph_gateway_url is required for the graphql backend")
		}
	case config.BackendKV:
		if c.EntityBucket == "" {
			return fmt.Errorf("entity_bucket is required for the kv backend")
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.QRCodeSize < 21 {
		return fmt.Errorf("qr_code_size must be at least 21")
	}
	if _, _, err := c.visibility(); err != nil {
		return err
	}
	return nil
}

func (c *Config) visibility() (*storage.VisibilityPolicy, storage.Level, error) {
	v := config.VisibilityConfig{ViewerLevel: c.ViewerLevel, Rules: c.Visibility}
	return v.Policy()
}
