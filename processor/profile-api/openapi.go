package profileapi

import (
	"reflect"

	"github.com/c360studio/semprofile/templatemodel"
	"github.com/c360studio/semstreams/service"
)

func init() {
	service.RegisterOpenAPISpec(componentName, profileAPIOpenAPISpec())
}

// OpenAPISpec implements the OpenAPIProvider interface.
func (c *Component) OpenAPISpec() *service.OpenAPISpec {
	return profileAPIOpenAPISpec()
}

var uriParam = service.ParameterSpec{
	Name:        "uri",
	In:          "query",
	Required:    true,
	Description: "URI of the individual",
	Schema:      service.Schema{Type: "string"},
}

// profileAPIOpenAPISpec describes the endpoints mounted at the root context path.
func profileAPIOpenAPISpec() *service.OpenAPISpec {
	return &service.OpenAPISpec{
		Tags: []service.TagSpec{
			{Name: "Profiles", Description: "Profile page template data"},
			{Name: "QR Codes", Description: "Contact card export for person profiles"},
		},
		Paths: map[string]service.PathSpec{
			"/individual": {
				GET: &service.OperationSpec{
					Summary:     "Get individual template data",
					Description: "Returns the presentation model of one individual, or its visible statements as linked data when format is set",
					Tags:        []string{"Profiles"},
					Parameters: []service.ParameterSpec{
						uriParam,
						{
							Name:        "format",
							In:          "query",
							Description: "json (default), turtle, ntriples or jsonld",
							Schema:      service.Schema{Type: "string"},
						},
					},
					Responses: map[string]service.ResponseSpec{
						"200": {
							Description: "Template data of the individual",
							ContentType: "application/json",
							SchemaRef:   "#/components/schemas/Snapshot",
						},
						"400": {Description: "Missing uri parameter or unsupported format"},
						"404": {Description: "Individual not found"},
						"503": {Description: "Store not started"},
					},
				},
			},
			"/qrcode": {
				GET: &service.OperationSpec{
					Summary:     "Export QR contact card",
					Description: "Returns the individual's vCard encoded as a QR PNG, or the raw vCard with format=vcard",
					Tags:        []string{"QR Codes"},
					Parameters: []service.ParameterSpec{
						uriParam,
						{
							Name:        "format",
							In:          "query",
							Description: "png (default) or vcard",
							Schema:      service.Schema{Type: "string"},
						},
					},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "QR code image or vCard", ContentType: "image/png"},
						"400": {Description: "Missing uri parameter"},
						"404": {Description: "Individual not found"},
					},
				},
			},
			"/qrcode/about": {
				GET: &service.OperationSpec{
					Summary:     "Describe QR export",
					Description: "Explains what the QR code holds and where to export it",
					Tags:        []string{"QR Codes"},
					Responses: map[string]service.ResponseSpec{
						"200": {
							Description: "QR export description",
							ContentType: "application/json",
							SchemaRef:   "#/components/schemas/AboutQRCodes",
						},
					},
				},
			},
		},
		ResponseTypes: []reflect.Type{
			reflect.TypeOf(templatemodel.Snapshot{}),
			reflect.TypeOf(AboutQRCodes{}),
		},
	}
}
