package rdfexport

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semprofile/export"
	"github.com/c360studio/semprofile/graph"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adaURI = "http://vivo.example.org/individual/ada"

type fakeRegistry struct {
	registered []component.RegistrationConfig
}

func (r *fakeRegistry) RegisterWithConfig(cfg component.RegistrationConfig) error {
	r.registered = append(r.registered, cfg)
	return nil
}

func TestRegister(t *testing.T) {
	assert.Error(t, Register(nil))

	reg := &fakeRegistry{}
	require.NoError(t, Register(reg))
	require.Len(t, reg.registered, 1)
	assert.Equal(t, "rdf-export", reg.registered[0].Name)
	assert.Equal(t, "output", reg.registered[0].Type)
	assert.NotNil(t, reg.registered[0].Factory)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		format  string
		want    export.Format
		wantErr bool
	}{
		{format: "", want: export.FormatTurtle},
		{format: "turtle", want: export.FormatTurtle},
		{format: "nt", want: export.FormatNTriples},
		{format: "application/ld+json", want: export.FormatJSONLD},
		{format: "rdfxml", want: export.FormatTurtle, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := Config{Format: tt.format}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, cfg.GetFormat())
		})
	}
}

func TestConfig_Subjects(t *testing.T) {
	cfg := Config{}
	stream, in, out, err := cfg.subjects()
	require.NoError(t, err)
	assert.Equal(t, "GRAPH", stream)
	assert.Equal(t, graph.GraphIngestSubject, in)
	assert.Equal(t, "graph.export.rdf", out)

	cfg = Config{Ports: &component.PortConfig{
		Inputs:  []component.PortDefinition{{Name: "in", Subject: "people.ingest", StreamName: "PEOPLE"}},
		Outputs: []component.PortDefinition{{Name: "out", Subject: "people.rdf"}},
	}}
	stream, in, out, err = cfg.subjects()
	require.NoError(t, err)
	assert.Equal(t, "PEOPLE", stream)
	assert.Equal(t, "people.ingest", in)
	assert.Equal(t, "people.rdf", out)

	cfg = Config{Ports: &component.PortConfig{
		Inputs: []component.PortDefinition{{Name: "in", Subject: "people.ingest"}},
	}}
	_, _, _, err = cfg.subjects()
	assert.Error(t, err)
}

func TestNewComponent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "defaults", raw: ``},
		{name: "ntriples", raw: `{"format":"ntriples"}`},
		{name: "unknown format", raw: `{"format":"rdfxml"}`, wantErr: true},
		{name: "output without subject", raw: `{"ports":{"outputs":[{"name":"out","subject":""}]}}`, wantErr: true},
		{name: "invalid json", raw: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewComponent(json.RawMessage(tt.raw), component.Dependencies{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "rdf-export", c.Meta().Name)
			assert.Len(t, c.InputPorts(), 1)
			assert.Len(t, c.OutputPorts(), 1)
		})
	}
}

func TestComponent_StartWithoutNATS(t *testing.T) {
	c := newTestComponent(t, `{}`)
	assert.Error(t, c.Start(t.Context()))
	assert.False(t, c.Health().Healthy)
	assert.NoError(t, c.Stop(time.Second))
}

func TestComponent_Convert(t *testing.T) {
	c := newTestComponent(t, `{"format":"turtle"}`)

	out, entityID, err := c.convert(ingestMessage(t))
	require.NoError(t, err)
	assert.Equal(t, profile.EntityID(adaURI), entityID)

	var msg message.BaseMessage
	require.NoError(t, json.Unmarshal(out, &msg))
	assert.Equal(t, RDFExportType, msg.Type())

	payload, ok := msg.Payload().(*Payload)
	require.True(t, ok, "payload type %T", msg.Payload())
	assert.Equal(t, adaURI, payload.URI)
	assert.Equal(t, "turtle", payload.Format)
	assert.Equal(t, "text/turtle", payload.MIMEType)
	assert.Contains(t, payload.Content, adaURI)
	assert.Contains(t, payload.Content, "ada@example.org")
	assert.NotContains(t, payload.Content, entityID)
	assert.NoError(t, payload.Validate())
}

func TestExportTriples(t *testing.T) {
	ind := storage.Individual{URI: adaURI, VClassURIs: []string{profile.ClassPerson}}
	stmts := []storage.DataPropertyStatement{
		{IndividualURI: adaURI, PropertyURI: profile.FOAFFirstName, Data: "Ada"},
	}
	triples := exportTriples(storage.ToTriples(ind, stmts, "test", time.Now()))

	require.Len(t, triples, 2)
	for _, tr := range triples {
		assert.NotEqual(t, profile.IndividualURI, tr.Predicate)
		switch tr.Predicate {
		case profile.IndividualType:
			assert.Equal(t, profile.ClassPerson, tr.Object)
			assert.Equal(t, "xsd:anyURI", tr.Datatype)
		default:
			assert.Equal(t, "Ada", tr.Object)
			assert.Empty(t, tr.Datatype)
		}
	}
}

func TestComponent_ConvertNTriples(t *testing.T) {
	c := newTestComponent(t, `{"format":"ntriples"}`)

	out, _, err := c.convert(ingestMessage(t))
	require.NoError(t, err)

	var msg message.BaseMessage
	require.NoError(t, json.Unmarshal(out, &msg))
	payload := msg.Payload().(*Payload)
	assert.Equal(t, "application/n-triples", payload.MIMEType)
	for _, line := range strings.Split(strings.TrimSpace(payload.Content), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		assert.True(t, strings.HasPrefix(line, "<"+adaURI+"> "), line)
	}
}

func TestComponent_ConvertSkipsOtherPayloads(t *testing.T) {
	c := newTestComponent(t, `{}`)

	other, err := json.Marshal(message.NewBaseMessage(RDFExportType, &Payload{
		EntityID: "x", Format: "turtle", Content: "x",
	}, "test"))
	require.NoError(t, err)

	_, _, err = c.convert(other)
	assert.True(t, errors.Is(err, errSkip))

	_, _, err = c.convert([]byte("{not json"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errSkip))
}

func TestComponent_DataFlow(t *testing.T) {
	c := newTestComponent(t, `{}`)
	assert.Zero(t, c.DataFlow().ErrorRate)

	c.messagesProcessed.Add(3)
	c.serializeErrors.Add(1)
	assert.InDelta(t, 0.25, c.DataFlow().ErrorRate, 1e-9)
	assert.Equal(t, 1, c.Health().ErrorCount)
}

func newTestComponent(t *testing.T, raw string) *Component {
	t.Helper()
	d, err := NewComponent(json.RawMessage(raw), component.Dependencies{})
	require.NoError(t, err)
	return d.(*Component)
}

func ingestMessage(t *testing.T) []byte {
	t.Helper()
	ind := storage.Individual{URI: adaURI, VClassURIs: []string{profile.ClassPerson}}
	stmts := []storage.DataPropertyStatement{
		{IndividualURI: adaURI, PropertyURI: profile.CoreEmail, Data: "ada@example.org"},
	}
	payload := graph.NewIndividualPayload(ind, stmts, graph.DefaultSource, time.Now())
	data, err := json.Marshal(message.NewBaseMessage(graph.IndividualType, payload, graph.DefaultSource))
	require.NoError(t, err)
	return data
}
