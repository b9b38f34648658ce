package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semstreams/service"
)

func TestGenerateOpenAPISpec_ProfileAPI(t *testing.T) {
	specs := service.GetAllOpenAPISpecs()
	require.Contains(t, specs, "profile-api")

	doc := generateOpenAPISpec(specs, "/vivo/", "https://vivo.example.edu")

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "https://vivo.example.edu", doc.Servers[0].URL)
	require.Contains(t, doc.Paths, "/vivo/individual")
	require.Contains(t, doc.Paths, "/vivo/qrcode")
	require.Contains(t, doc.Paths, "/vivo/qrcode/about")

	individual := doc.Paths["/vivo/individual"].Get
	require.NotNil(t, individual)
	assert.Equal(t, "uri", individual.Parameters[0].Name)
	assert.True(t, individual.Parameters[0].Required)
	assert.Equal(t, "#/components/schemas/Snapshot", individual.Responses["200"].Content["application/json"].Schema.Ref)

	png := doc.Paths["/vivo/qrcode"].Get.Responses["200"].Content["image/png"].Schema
	assert.Equal(t, SchemaRef{Type: "string", Format: "binary"}, png)

	assert.Contains(t, doc.Components.Schemas, "Snapshot")
	assert.Contains(t, doc.Components.Schemas, "AboutQRCodes")
	assert.Len(t, doc.Tags, 2)
}

func TestSchemaFromStruct(t *testing.T) {
	type sample struct {
		URI    string            `json:"uri"`
		Name   string            `json:"name,omitempty"`
		Fields map[string]string `json:"fields,omitempty"`
		Flags  []bool            `json:"flags"`
		hidden string
		Skip   string `json:"-"`
	}

	schema := schemaFromType(reflect.TypeOf(sample{}))
	props := schema["properties"].(map[string]any)

	assert.Len(t, props, 4)
	assert.Equal(t, map[string]any{"type": "string"}, props["uri"])
	assert.Equal(t, "object", props["fields"].(map[string]any)["type"])
	assert.Equal(t, []string{"uri", "flags"}, schema["required"])
}

func TestWriteYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	doc := generateOpenAPISpec(service.GetAllOpenAPISpecs(), "", "http://localhost:8080")

	require.NoError(t, writeYAMLFile(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "3.0.3", decoded["openapi"])
	assert.Contains(t, decoded["paths"], "/individual")
}
