// Package rdfexport provides a streaming output component that subscribes
// to profile individual ingest messages and republishes each individual as
// linked data (Turtle, N-Triples or JSON-LD).
package rdfexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semprofile/export"
	"github.com/c360studio/semprofile/graph"
	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	ssexport "github.com/c360studio/semstreams/vocabulary/export"
)

const (
	componentName = "rdf-export"
	description   = "Serializes profile individuals to linked data (Turtle, N-Triples, JSON-LD)"
	version       = "0.1.0"
)

// iriDatatype marks a string object as an IRI reference.
const iriDatatype = "xsd:anyURI"

// errSkip marks ingest messages that carry no profile individual.
var errSkip = errors.New("not a profile individual")

// Component implements the rdf-export output processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	format     export.Format
	serializer ssexport.Format

	inputStream   string
	inputSubject  string
	outputSubject string

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	messagesProcessed atomic.Int64
	messagesSkipped   atomic.Int64
	serializeErrors   atomic.Int64
	publishErrors     atomic.Int64
	lastActivity      atomic.Int64 // unix nanos
}

// NewComponent creates a new rdf-export output component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	inputStream, inputSubject, outputSubject, err := config.subjects()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Component{
		name:          componentName,
		config:        config,
		natsClient:    deps.NATSClient,
		logger:        deps.GetLogger(),
		format:        config.GetFormat(),
		serializer:    config.serializerFormat(),
		inputStream:   inputStream,
		inputSubject:  inputSubject,
		outputSubject: outputSubject,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins consuming ingest messages and producing linked data.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	consumeCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	consumerCfg := natsclient.StreamConsumerConfig{
		StreamName:    c.inputStream,
		ConsumerName:  componentName,
		FilterSubject: c.inputSubject,
		DeliverPolicy: "new",
		AckPolicy:     "explicit",
		MaxDeliver:    3,
		AckWait:       10 * time.Second,
	}

	if err := c.natsClient.ConsumeStreamWithConfig(consumeCtx, consumerCfg, c.handleMessage); err != nil {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("start consumer: %w", err)
	}

	c.logger.Info("rdf-export started",
		"format", c.format,
		"input", c.inputSubject,
		"output", c.outputSubject)

	return nil
}

// handleMessage processes a single ingest message.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	out, entityID, err := c.convert(msg.Data())
	switch {
	case errors.Is(err, errSkip):
		// Other producers share the ingest subject.
		c.messagesSkipped.Add(1)
		_ = msg.Ack()
		return
	case err != nil:
		c.logger.Warn("Failed to serialize individual",
			"subject", msg.Subject(),
			"format", c.format,
			"error", err)
		c.serializeErrors.Add(1)
		_ = msg.Term()
		return
	}

	if err := c.natsClient.PublishToStream(ctx, c.outputSubject, out); err != nil {
		c.logger.Warn("Failed to publish linked data",
			"entity_id", entityID,
			"subject", c.outputSubject,
			"error", err)
		c.publishErrors.Add(1)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	c.messagesProcessed.Add(1)
	c.lastActivity.Store(time.Now().UnixNano())

	c.logger.Debug("Exported individual",
		"entity_id", entityID,
		"format", c.format,
		"output_bytes", len(out))
}

// convert turns an ingest message into an export message. It returns
// errSkip for messages that do not carry a profile individual.
func (c *Component) convert(data []byte) ([]byte, string, error) {
	var baseMsg message.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		return nil, "", fmt.Errorf("unmarshal base message: %w", err)
	}

	payload, ok := baseMsg.Payload().(*graph.IndividualPayload)
	if !ok {
		return nil, "", errSkip
	}
	entityID := payload.EntityID()

	content, err := ssexport.SerializeToString(exportTriples(payload.Triples()), c.serializer,
		ssexport.WithSubjectIRIFunc(func(subject string) string {
			if subject == entityID {
				return payload.URI
			}
			return subject
		}))
	if err != nil {
		return nil, entityID, fmt.Errorf("serialize %s: %w", entityID, err)
	}

	info, _ := export.GetFormatInfo(c.format)
	out := &Payload{
		EntityID: entityID,
		URI:      payload.URI,
		Format:   string(c.format),
		MIMEType: info.MIMEType,
		Content:  content,
	}
	encoded, err := json.Marshal(message.NewBaseMessage(RDFExportType, out, componentName))
	if err != nil {
		return nil, entityID, fmt.Errorf("marshal export message: %w", err)
	}
	return encoded, entityID, nil
}

// exportTriples drops the URI bookkeeping triple, which becomes the subject
// IRI, and marks class objects as IRIs.
func exportTriples(triples []message.Triple) []message.Triple {
	out := make([]message.Triple, 0, len(triples))
	for _, t := range triples {
		switch t.Predicate {
		case profile.IndividualURI:
			continue
		case profile.IndividualType:
			t.Datatype = iriDatatype
		}
		out = append(out, t)
	}
	return out
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.running = false
	c.logger.Info("rdf-export stopped",
		"messages_processed", c.messagesProcessed.Load(),
		"messages_skipped", c.messagesSkipped.Load(),
		"serialize_errors", c.serializeErrors.Load(),
		"publish_errors", c.publishErrors.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        componentName,
		Type:        "output",
		Description: description,
		Version:     version,
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return portsFrom(c.config.Ports.Inputs, component.DirectionInput)
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}
	return portsFrom(c.config.Ports.Outputs, component.DirectionOutput)
}

func portsFrom(defs []component.PortDefinition, direction component.Direction) []component.Port {
	ports := make([]component.Port, 0, len(defs))
	for _, def := range defs {
		ports = append(ports, buildPort(def, direction))
	}
	return ports
}

// buildPort uses JetStreamPort for jetstream ports and NATSPort otherwise.
func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return rdfExportSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.serializeErrors.Load() + c.publishErrors.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	var fm component.FlowMetrics

	processed := c.messagesProcessed.Load()
	failed := c.serializeErrors.Load() + c.publishErrors.Load()
	if total := processed + failed; total > 0 {
		fm.ErrorRate = float64(failed) / float64(total)
	}
	if ts := c.lastActivity.Load(); ts > 0 {
		fm.LastActivity = time.Unix(0, ts)
	}
	return fm
}
