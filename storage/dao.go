// Package storage provides data access for profile individuals and their
// data property statements.
//
// Backends (MemoryStore, GraphQLStore, KVStore) return raw assertions. Callers
// that render pages for a viewer wrap them with Filtered, which applies the
// property VisibilityPolicy unless a lookup asks for IgnoreVisibility.
package storage

import "context"

// Individual is a profile subject identified by URI.
type Individual struct {
	URI        string   `json:"uri" yaml:"uri"`
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
	VClassURIs []string `json:"types,omitempty" yaml:"types,omitempty"`
}

// IsVClass reports whether the individual is asserted to be of classURI.
func (i *Individual) IsVClass(classURI string) bool {
	if i == nil {
		return false
	}
	for _, c := range i.VClassURIs {
		if c == classURI {
			return true
		}
	}
	return false
}

// DataPropertyStatement is one literal value attached to an individual.
type DataPropertyStatement struct {
	IndividualURI string `json:"individual_uri"`
	PropertyURI   string `json:"property_uri"`
	Data          string `json:"data"`
	Datatype      string `json:"datatype,omitempty"`
	Lang          string `json:"lang,omitempty"`
}

// IndividualDAO loads individuals.
type IndividualDAO interface {
	// Individual returns ErrNotFound when no individual has uri.
	Individual(ctx context.Context, uri string) (*Individual, error)
}

// DataPropertyStatementDAO loads data property statements.
type DataPropertyStatementDAO interface {
	// StatementsByProperty returns the statements for one individual and
	// property. An empty result is not an error. The order of the returned
	// statements is backend dependent and not guaranteed.
	StatementsByProperty(ctx context.Context, individualURI, propertyURI string, opts ...LookupOption) ([]DataPropertyStatement, error)

	// Statements returns every statement of one individual.
	Statements(ctx context.Context, individualURI string, opts ...LookupOption) ([]DataPropertyStatement, error)
}

// Store is implemented by every backend.
type Store interface {
	IndividualDAO
	DataPropertyStatementDAO
}

// Factory bundles the DAOs used while rendering one request.
type Factory struct {
	Individuals            IndividualDAO
	DataPropertyStatements DataPropertyStatementDAO
}

// NewFactory returns an unfiltered factory over a backend.
func NewFactory(s Store) Factory {
	return Factory{
		Individuals:            s,
		DataPropertyStatements: s,
	}
}

// LookupOption modifies a single DAO lookup.
type LookupOption func(*lookupOptions)

type lookupOptions struct {
	ignoreVisibility bool
}

// IgnoreVisibility makes the lookup see every asserted statement regardless
// of the viewer's visibility level.
func IgnoreVisibility() LookupOption {
	return func(o *lookupOptions) {
		o.ignoreVisibility = true
	}
}

func applyLookupOptions(opts []LookupOption) lookupOptions {
	var o lookupOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// FirstValue returns the data of the first statement, or "" when there is none.
// Which statement is first is unspecified when several exist.
func FirstValue(stmts []DataPropertyStatement) (string, bool) {
	if len(stmts) == 0 {
		return "", false
	}
	return stmts[0].Data, true
}
