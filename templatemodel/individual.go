package templatemodel

import (
	"context"
	"fmt"

	"github.com/c360studio/semprofile/config"
	"github.com/c360studio/semprofile/export"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/urlbuilder"
	"github.com/c360studio/semprofile/vocabulary/profile"
)

// Visualization parameters.
const (
	ParamURI     = "uri"
	ParamVis     = "vis"
	ParamVisMode = "vis_mode"

	VisPersonLevel      = "person_level"
	VisEntityComparison = "entity_comparison"
	VisModeCoAuthor     = "coauthor"
	VisModeCoPI         = "copi"
)

// QR data keys. Every key is optional.
const (
	QRFirstName       = "firstName"
	QRLastName        = "lastName"
	QRPreferredTitle  = "preferredTitle"
	QRPhoneNumber     = "phoneNumber"
	QREmail           = "email"
	QRExternalURL     = "externalUrl"
	QRExportQRCodeURL = "exportQrCodeUrl"
	QRAboutQRCodesURL = "aboutQrCodesUrl"
)

var qrProperties = []struct {
	key      string
	property string
}{
	{QRFirstName, profile.FOAFFirstName},
	{QRLastName, profile.FOAFLastName},
	{QRPreferredTitle, profile.CorePreferredTitle},
	{QRPhoneNumber, profile.CorePhoneNumber},
	{QREmail, profile.CoreEmail},
}

// Individual is the presentation model of one profile subject. It lives for a
// single request and is not safe for concurrent use.
type Individual struct {
	Base

	qrData map[string]string
}

// Option configures an Individual.
type Option func(*Individual)

// WithProfileURL overrides the profile path used for links and the QR
// external URL.
func WithProfileURL(path string) Option {
	return func(i *Individual) {
		i.profileURL = path
	}
}

// NewIndividual wraps an already loaded individual.
func NewIndividual(ind *storage.Individual, req *Request, opts ...Option) *Individual {
	i := &Individual{Base: Base{individual: ind, req: req}}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Load fetches uri through the request's DAOs and wraps it.
// It returns storage.ErrNotFound when the individual does not exist.
func Load(ctx context.Context, req *Request, uri string, opts ...Option) (*Individual, error) {
	if req.DAOs.Individuals == nil {
		return nil, fmt.Errorf("no individual DAO configured")
	}
	ind, err := req.DAOs.Individuals.Individual(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("load individual %s: %w", uri, err)
	}
	return NewIndividual(ind, req, opts...), nil
}

// IsPerson reports whether the individual is a foaf:Person.
func (i *Individual) IsPerson() bool {
	return i.IsVClass(profile.ClassPerson)
}

// IsOrganization reports whether the individual is a foaf:Organization.
func (i *Individual) IsOrganization() bool {
	return i.IsVClass(profile.ClassOrganization)
}

func (i *Individual) baseVisParams() urlbuilder.ParamMap {
	return urlbuilder.NewParamMap(ParamURI, i.URI())
}

func (i *Individual) visURL(params urlbuilder.ParamMap) string {
	base := i.URL(urlbuilder.RouteVisualization.Path(), i.baseVisParams())
	return urlbuilder.AddParams(base, params)
}

// CoAuthorVisURL returns the co-author network link, or "" for non-persons.
func (i *Individual) CoAuthorVisURL() string {
	if !i.IsPerson() {
		return ""
	}
	return i.visURL(urlbuilder.NewParamMap(ParamVis, VisPersonLevel, ParamVisMode, VisModeCoAuthor))
}

// CoInvestigatorVisURL returns the co-investigator network link, or "" for
// non-persons.
func (i *Individual) CoInvestigatorVisURL() string {
	if !i.IsPerson() {
		return ""
	}
	return i.visURL(urlbuilder.NewParamMap(ParamVis, VisPersonLevel, ParamVisMode, VisModeCoPI))
}

// TemporalGraphURL returns the temporal comparison link, or "" for
// non-organizations.
func (i *Individual) TemporalGraphURL() string {
	if !i.IsOrganization() {
		return ""
	}
	return i.visURL(urlbuilder.NewParamMap(ParamVis, VisEntityComparison))
}

// SelfEditingID returns the individual's value of the configured
// selfEditing.idMatchingProperty, or "" when the property is not configured
// or has no value. The lookup ignores visibility rules: identity matching has
// to work for properties the viewer cannot see.
func (i *Individual) SelfEditingID(ctx context.Context) (string, error) {
	property, ok := i.req.property(config.SelfEditingIDMatchingProperty)
	if !ok {
		return "", nil
	}
	v, _, err := i.firstValue(ctx, property, storage.IgnoreVisibility())
	if err != nil {
		return "", fmt.Errorf("self-editing id: %w", err)
	}
	return v, nil
}

// QRData returns the contact fields for the QR code. The map is built on the
// first successful call and the same map is returned afterwards. A field with
// no statement is absent from the map.
func (i *Individual) QRData(ctx context.Context) (map[string]string, error) {
	if i.qrData != nil {
		return i.qrData, nil
	}

	data := make(map[string]string, len(qrProperties)+3)
	for _, p := range qrProperties {
		v, ok, err := i.firstValue(ctx, p.property, storage.IgnoreVisibility())
		if err != nil {
			return nil, fmt.Errorf("qr data: %w", err)
		}
		if ok {
			data[p.key] = v
		}
	}

	data[QRExternalURL] = i.req.SchemeAndHost() + i.ProfileURL()
	uriParam := urlbuilder.NewParamMap(ParamURI, i.URI())
	data[QRExportQRCodeURL] = i.req.URLs.RouteURL(urlbuilder.RouteQRCode, uriParam)
	data[QRAboutQRCodesURL] = i.req.URLs.RouteURL(urlbuilder.RouteQRCodeAbout, urlbuilder.ParamMap{})

	i.qrData = data
	return data, nil
}

// LinkedData returns the individual as an export document holding the
// statements the viewer may see.
func (i *Individual) LinkedData(ctx context.Context) (export.Document, error) {
	stmts, err := i.Statements(ctx)
	if err != nil {
		return export.Document{}, err
	}
	return export.NewDocument(*i.individual, stmts), nil
}

// Snapshot is the JSON view of an Individual.
type Snapshot struct {
	URI                  string            `json:"uri"`
	Name                 string            `json:"name,omitempty"`
	Types                []string          `json:"types,omitempty"`
	ProfileURL           string            `json:"profileUrl"`
	IsPerson             bool              `json:"isPerson"`
	IsOrganization       bool              `json:"isOrganization"`
	CoAuthorVisURL       string            `json:"coAuthorVisUrl,omitempty"`
	CoInvestigatorVisURL string            `json:"coInvestigatorVisUrl,omitempty"`
	TemporalGraphURL     string            `json:"temporalGraphUrl,omitempty"`
	SelfEditingID        string            `json:"selfEditingId,omitempty"`
	QRData               map[string]string `json:"qrData,omitempty"`
}

// Snapshot evaluates every accessor. QR data is only included for persons,
// the only individuals the page offers a QR code for.
// SelfEditingID and the QR phone and email are read with IgnoreVisibility,
// so they appear even when the viewer's level hides those properties.
func (i *Individual) Snapshot(ctx context.Context) (*Snapshot, error) {
	name, err := i.Name(ctx)
	if err != nil {
		return nil, err
	}
	selfEditingID, err := i.SelfEditingID(ctx)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		URI:                  i.URI(),
		Name:                 name,
		Types:                i.Types(),
		ProfileURL:           i.ProfileURL(),
		IsPerson:             i.IsPerson(),
		IsOrganization:       i.IsOrganization(),
		CoAuthorVisURL:       i.CoAuthorVisURL(),
		CoInvestigatorVisURL: i.CoInvestigatorVisURL(),
		TemporalGraphURL:     i.TemporalGraphURL(),
		SelfEditingID:        selfEditingID,
	}

	if s.IsPerson {
		qr, err := i.QRData(ctx)
		if err != nil {
			return nil, err
		}
		s.QRData = qr
	}
	return s, nil
}
