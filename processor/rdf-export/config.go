package rdfexport

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semprofile/export"
	"github.com/c360studio/semprofile/graph"
	"github.com/c360studio/semstreams/component"
	ssexport "github.com/c360studio/semstreams/vocabulary/export"
)

// rdfExportSchema defines the configuration schema.
var rdfExportSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the rdf-export output component.
type Config struct {
	Ports  *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
	Format string                `json:"format" schema:"type:string,description:Linked data format (turtle/ntriples/jsonld),category:basic,default:turtle"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Format == "" {
		return nil
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		return err
	}
	return nil
}

// GetFormat returns the configured format, turtle when unset.
func (c *Config) GetFormat() export.Format {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return export.FormatTurtle
	}
	return f
}

// serializerFormat maps the configured format onto the semstreams serializer.
func (c *Config) serializerFormat() ssexport.Format {
	switch c.GetFormat() {
	case export.FormatNTriples:
		return ssexport.NTriples
	case export.FormatJSONLD:
		return ssexport.JSONLD
	default:
		return ssexport.Turtle
	}
}

// subjects resolves the input stream, input subject and output subject.
func (c *Config) subjects() (inputStream, inputSubject, outputSubject string, err error) {
	inputStream, inputSubject, outputSubject = graphStream, graph.GraphIngestSubject, defaultOutputSubject
	if c.Ports == nil {
		return
	}
	if len(c.Ports.Inputs) > 0 {
		in := c.Ports.Inputs[0]
		if in.Subject == "" || in.StreamName == "" {
			return "", "", "", fmt.Errorf("input port %q needs subject and stream_name", in.Name)
		}
		inputStream, inputSubject = in.StreamName, in.Subject
	}
	if len(c.Ports.Outputs) > 0 {
		if c.Ports.Outputs[0].Subject == "" {
			return "", "", "", fmt.Errorf("output port %q needs a subject", c.Ports.Outputs[0].Name)
		}
		outputSubject = c.Ports.Outputs[0].Subject
	}
	return
}

const (
	graphStream          = "GRAPH"
	defaultOutputSubject = "graph.export.rdf"
)

// DefaultConfig returns the default configuration for rdf-export.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "individuals_in",
					Type:        "jetstream",
					Subject:     graph.GraphIngestSubject,
					StreamName:  graphStream,
					Required:    true,
					Description: "Profile individual ingest messages",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "rdf_out",
					Type:        "jetstream",
					Subject:     defaultOutputSubject,
					StreamName:  graphStream,
					Required:    true,
					Description: "Serialized linked data of each individual",
				},
			},
		},
		Format: string(export.FormatTurtle),
	}
}
