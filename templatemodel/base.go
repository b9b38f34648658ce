package templatemodel

import (
	"context"
	"fmt"

	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/urlbuilder"
	"github.com/c360studio/semprofile/vocabulary/profile"
)

// Base holds the accessors every individual model shares.
type Base struct {
	individual *storage.Individual
	req        *Request
	profileURL string
}

// URI returns the individual's URI.
func (b *Base) URI() string {
	return b.individual.URI
}

// Types returns the asserted class URIs.
func (b *Base) Types() []string {
	return b.individual.VClassURIs
}

// IsVClass reports whether the individual is of classURI.
func (b *Base) IsVClass(classURI string) bool {
	return b.individual.IsVClass(classURI)
}

// URL returns a context-relative URL for path with params appended.
func (b *Base) URL(path string, params urlbuilder.ParamMap) string {
	return b.req.URLs.URL(path, params)
}

// ProfileURL returns the profile page path of the individual.
func (b *Base) ProfileURL() string {
	if b.profileURL != "" {
		return b.profileURL
	}
	return b.req.URLs.ProfileURL(b.individual.URI)
}

// Name returns the individual's label as the viewer may see it, or "".
func (b *Base) Name(ctx context.Context) (string, error) {
	if b.individual.Label != "" {
		return b.individual.Label, nil
	}
	v, _, err := b.firstValue(ctx, profile.RDFSLabel)
	return v, err
}

// firstValue returns the first statement value for propertyURI. Which value
// wins when several exist is up to the store.
func (b *Base) firstValue(ctx context.Context, propertyURI string, opts ...storage.LookupOption) (string, bool, error) {
	dao := b.req.DAOs.DataPropertyStatements
	if dao == nil {
		return "", false, fmt.Errorf("no data property statement DAO configured")
	}
	stmts, err := dao.StatementsByProperty(ctx, b.individual.URI, propertyURI, opts...)
	if err != nil {
		return "", false, fmt.Errorf("lookup %s for %s: %w", propertyURI, b.individual.URI, err)
	}
	v, ok := storage.FirstValue(stmts)
	return v, ok, nil
}

// Statements returns every statement of the individual the viewer may see.
func (b *Base) Statements(ctx context.Context) ([]storage.DataPropertyStatement, error) {
	dao := b.req.DAOs.DataPropertyStatements
	if dao == nil {
		return nil, fmt.Errorf("no data property statement DAO configured")
	}
	stmts, err := dao.Statements(ctx, b.individual.URI)
	if err != nil {
		return nil, fmt.Errorf("statements for %s: %w", b.individual.URI, err)
	}
	return stmts, nil
}
