// Package main generates the OpenAPI 3.0 document for the semprofile HTTP API
// from the specs components register with semstreams.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	// Registers the profile-api OpenAPI spec via init()
	_ "github.com/c360studio/semprofile/processor/profile-api"

	"github.com/c360studio/semstreams/service"
	"gopkg.in/yaml.v3"
)

func main() {
	out := flag.String("o", "./specs/openapi.v3.yaml", "Output path for OpenAPI spec")
	contextPath := flag.String("context-path", "", "Deployment context path prepended to every route")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL listed in the document")
	flag.Parse()

	specs := service.GetAllOpenAPISpecs()
	log.Printf("Found %d service OpenAPI specs", len(specs))

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	doc := generateOpenAPISpec(specs, *contextPath, *serverURL)
	if err := writeYAMLFile(*out, doc); err != nil {
		log.Fatalf("Failed to write OpenAPI spec: %v", err)
	}
	log.Printf("Generated OpenAPI spec: %s (%d paths)", *out, len(doc.Paths))
}

// OpenAPIDocument is the generated OpenAPI 3.0 document.
type OpenAPIDocument struct {
	OpenAPI    string              `yaml:"openapi"`
	Info       InfoObject          `yaml:"info"`
	Servers    []ServerObject      `yaml:"servers"`
	Paths      map[string]PathItem `yaml:"paths"`
	Components ComponentsObject    `yaml:"components"`
	Tags       []TagObject         `yaml:"tags"`
}

type InfoObject struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

type ServerObject struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type ComponentsObject struct {
	Schemas map[string]any `yaml:"schemas"`
}

type TagObject struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// PathItem holds the operations of one path. The profile API is read-only
// apart from the occasional POST.
type PathItem struct {
	Get  *Operation `yaml:"get,omitempty"`
	Post *Operation `yaml:"post,omitempty"`
}

type Operation struct {
	Summary     string              `yaml:"summary"`
	Description string              `yaml:"description,omitempty"`
	Tags        []string            `yaml:"tags,omitempty"`
	Parameters  []Parameter         `yaml:"parameters,omitempty"`
	Responses   map[string]Response `yaml:"responses"`
}

type Parameter struct {
	Name        string    `yaml:"name"`
	In          string    `yaml:"in"`
	Required    bool      `yaml:"required,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Schema      SchemaRef `yaml:"schema"`
}

type Response struct {
	Description string               `yaml:"description"`
	Content     map[string]MediaType `yaml:"content,omitempty"`
}

type MediaType struct {
	Schema SchemaRef `yaml:"schema"`
}

type SchemaRef struct {
	Ref    string     `yaml:"$ref,omitempty"`
	Type   string     `yaml:"type,omitempty"`
	Format string     `yaml:"format,omitempty"`
	Items  *SchemaRef `yaml:"items,omitempty"`
}

// generateOpenAPISpec merges every registered spec into one document with
// paths mounted under contextPath.
func generateOpenAPISpec(specs map[string]*service.OpenAPISpec, contextPath, serverURL string) OpenAPIDocument {
	contextPath = strings.TrimRight(contextPath, "/")

	doc := OpenAPIDocument{
		OpenAPI: "3.0.3",
		Info: InfoObject{
			Title:       "Semprofile API",
			Description: "Profile page template data and QR contact card export",
			Version:     "1.0.0",
		},
		Servers:    []ServerObject{{URL: serverURL, Description: "Profile server"}},
		Paths:      make(map[string]PathItem),
		Components: ComponentsObject{Schemas: make(map[string]any)},
	}

	seenTypes := make(map[reflect.Type]bool)
	tags := make(map[string]TagObject)

	for _, name := range sortedNames(specs) {
		spec := specs[name]
		for path, ps := range spec.Paths {
			doc.Paths[contextPath+path] = convertPathSpec(ps)
		}
		for _, t := range spec.ResponseTypes {
			if seenTypes[t] {
				continue
			}
			seenTypes[t] = true
			doc.Components.Schemas[typeNameFromReflect(t)] = schemaFromType(t)
		}
		for _, tag := range spec.Tags {
			if _, ok := tags[tag.Name]; !ok {
				tags[tag.Name] = TagObject{Name: tag.Name, Description: tag.Description}
			}
		}
	}

	for _, name := range sortedNames(tags) {
		doc.Tags = append(doc.Tags, tags[name])
	}
	return doc
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func convertPathSpec(ps service.PathSpec) PathItem {
	item := PathItem{}
	if ps.GET != nil {
		item.Get = convertOperation(ps.GET)
	}
	if ps.POST != nil {
		item.Post = convertOperation(ps.POST)
	}
	return item
}

func convertOperation(op *service.OperationSpec) *Operation {
	operation := &Operation{
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
		Responses:   make(map[string]Response),
	}

	for _, p := range op.Parameters {
		operation.Parameters = append(operation.Parameters, Parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required,
			Description: p.Description,
			Schema:      SchemaRef{Type: p.Schema.Type},
		})
	}

	for code, resp := range op.Responses {
		operation.Responses[code] = convertResponse(resp)
	}
	return operation
}

func convertResponse(resp service.ResponseSpec) Response {
	response := Response{Description: resp.Description}

	contentType := resp.ContentType
	switch {
	case resp.SchemaRef != "":
		if contentType == "" {
			contentType = "application/json"
		}
		schema := SchemaRef{Ref: resp.SchemaRef}
		if resp.IsArray {
			schema = SchemaRef{Type: "array", Items: &SchemaRef{Ref: resp.SchemaRef}}
		}
		response.Content = map[string]MediaType{contentType: {Schema: schema}}
	case strings.HasPrefix(contentType, "image/"):
		response.Content = map[string]MediaType{contentType: {Schema: SchemaRef{Type: "string", Format: "binary"}}}
	case contentType != "":
		response.Content = map[string]MediaType{contentType: {Schema: SchemaRef{Type: "object"}}}
	}
	return response
}

// schemaFromType generates a JSON Schema from a reflect.Type.
func schemaFromType(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.Ptr:
		schema := schemaFromType(t.Elem())
		schema["nullable"] = true
		return schema
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return map[string]any{"type": "string", "format": "date-time"}
		}
		return schemaFromStruct(t)
	case reflect.Slice:
		return map[string]any{"type": "array", "items": schemaFromType(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaFromType(t.Elem())}
	case reflect.Interface:
		return map[string]any{}
	default:
		return map[string]any{"type": "string"}
	}
}

// schemaFromStruct builds an object schema from json tags. Fields without
// omitempty are required.
func schemaFromStruct(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		properties[name] = schemaFromType(field.Type)

		if !strings.Contains(opts, "omitempty") && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func typeNameFromReflect(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		return typeNameFromReflect(t.Elem())
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func writeYAMLFile(filename string, data any) error {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	header := "# OpenAPI 3.0 Specification for Semprofile API\n" +
		"# Generated by openapi-generator - do not edit\n\n"

	if err := os.WriteFile(filename, append([]byte(header), yamlData...), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
