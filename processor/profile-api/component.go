// Package profileapi serves profile template data over HTTP.
// It renders individuals through templatemodel and exports QR contact cards.
package profileapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semprofile/config"
	"github.com/c360studio/semprofile/qrcode"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/templatemodel"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
)

const (
	componentName = "profile-api"
	description   = "HTTP endpoints for profile template data and QR contact export"
	version       = "0.1.0"
)

// Component implements the profile-api component.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	metrics    *apiMetrics

	// Injected or built on Start
	store      storage.Store
	properties templatemodel.PropertySource
	qr         qrcode.Generator

	policy      *storage.VisibilityPolicy
	viewerLevel storage.Level

	requests     atomic.Int64
	failures     atomic.Int64
	lastActivity atomic.Int64 // unix nanos

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// ErrNotStarted is returned by lookups made before Start.
var ErrNotStarted = errors.New("profile-api not started")

// Option customizes a Component built with New.
type Option func(*Component)

// WithStore serves individuals from s instead of the configured backend.
func WithStore(s storage.Store) Option {
	return func(c *Component) { c.store = s }
}

// WithProperties uses a live property source, such as watched config.Properties.
func WithProperties(p templatemodel.PropertySource) Option {
	return func(c *Component) { c.properties = p }
}

// WithQRGenerator replaces the PNG encoder.
func WithQRGenerator(g qrcode.Generator) Option {
	return func(c *Component) { c.qr = g }
}

// NewComponent creates a new profile-api component from raw JSON config.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var cfg Config
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	c, err := New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// New creates a profile-api component.
func New(cfg Config, deps component.Dependencies, opts ...Option) (*Component, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	policy, level, err := cfg.visibility()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	metrics, err := newAPIMetrics(deps.MetricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	c := &Component{
		name:        componentName,
		config:      cfg,
		natsClient:  deps.NATSClient,
		logger:      deps.GetLogger(),
		metrics:     metrics,
		policy:      policy,
		viewerLevel: level,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.properties == nil {
		c.properties = config.NewProperties(cfg.Properties)
	}
	if c.qr == nil {
		enc := qrcode.NewEncoder()
		enc.Size = cfg.QRCodeSize
		c.qr = enc
	}
	return c, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized profile-api",
		"backend", c.config.Backend,
		"context_path", c.config.ContextPath,
		"viewer_level", c.viewerLevel.String())
	return nil
}

// Start begins the component.
func (c *Component) Start(ctx context.Context) error {
	// Atomically transition from stopped to starting
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		currentState := c.state.Load()
		if currentState == stateRunning || currentState == stateStarting {
			return fmt.Errorf("component already running or starting")
		}
		return fmt.Errorf("component in invalid state: %d", currentState)
	}

	// Ensure we transition to stopped if setup fails
	defer func() {
		if c.state.Load() == stateStarting {
			c.state.Store(stateStopped)
		}
	}()

	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()

	if store == nil {
		s, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		store = s
	}

	c.mu.Lock()
	c.store = store
	c.startTime = time.Now()
	c.mu.Unlock()

	c.state.Store(stateRunning)

	c.logger.Info("profile-api started",
		"backend", c.config.Backend,
		"context_path", c.config.ContextPath)

	return nil
}

// openStore builds the configured backend.
func (c *Component) openStore(ctx context.Context) (storage.Store, error) {
	switch c.config.Backend {
	case config.BackendGraphQL:
		return storage.NewGraphQLStore(c.config.GraphGatewayURL), nil

	case config.BackendKV:
		if c.natsClient == nil {
			return nil, fmt.Errorf("NATS client required for the kv backend")
		}
		js, err := c.natsClient.JetStream()
		if err != nil {
			return nil, fmt.Errorf("get jetstream: %w", err)
		}
		return storage.NewKVStore(ctx, js, c.config.EntityBucket)

	default:
		if c.config.FixturePath == "" {
			c.logger.Warn("Memory backend has no fixture, serving an empty store")
			return storage.NewMemoryStore(), nil
		}
		s, err := storage.LoadFixtureFile(c.config.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		return s, nil
	}
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	// Atomically transition from running to stopping
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		currentState := c.state.Load()
		if currentState == stateStopped || currentState == stateStopping {
			return nil
		}
		return fmt.Errorf("component in unexpected state: %d", currentState)
	}

	c.state.Store(stateStopped)

	c.logger.Info("profile-api stopped")

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "processor",
		Description: description,
		Version:     version,
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	return []component.Port{}
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return profileAPISchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	state := c.state.Load()
	running := state == stateRunning

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	switch state {
	case stateStarting:
		status = "starting"
	case stateRunning:
		status = "running"
	case stateStopping:
		status = "stopping"
	}

	return component.HealthStatus{
		Healthy:   running,
		LastCheck: time.Now(),
		Uptime:    time.Since(startTime),
		Status:    status,
	}
}

// DataFlow returns request counters since start.
func (c *Component) DataFlow() component.FlowMetrics {
	var fm component.FlowMetrics

	total := c.requests.Load()
	if total > 0 {
		fm.ErrorRate = float64(c.failures.Load()) / float64(total)
	}
	if ts := c.lastActivity.Load(); ts > 0 {
		fm.LastActivity = time.Unix(0, ts)
	}

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()
	if !startTime.IsZero() {
		if secs := time.Since(startTime).Seconds(); secs > 0 {
			fm.MessagesPerSecond = float64(total) / secs
		}
	}
	return fm
}

// getStore returns the active store, or nil before Start.
func (c *Component) getStore() storage.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// Individual loads uri for the viewer of r. Links in the result are built
// from r's scheme and host.
func (c *Component) Individual(r *http.Request, uri string) (*templatemodel.Individual, error) {
	store := c.getStore()
	if store == nil || c.state.Load() != stateRunning {
		return nil, ErrNotStarted
	}

	req := templatemodel.NewRequest(r, templatemodel.RequestOptions{
		ContextPath:           c.config.ContextPath,
		DefaultNamespace:      c.config.DefaultNamespace,
		TrustForwardedHeaders: c.config.TrustForwardedHeaders,
		ViewerLevel:           c.viewerLevel,
		Store:                 store,
		Policy:                c.policy,
		Properties:            c.properties,
	})
	return templatemodel.Load(r.Context(), req, uri)
}
