package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/c360studio/semprofile/vocabulary/profile"
	"gopkg.in/yaml.v3"
)

// MemoryStore is an in-process Store. Statements are returned in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	individuals map[string]*Individual
	statements  map[statementKey][]DataPropertyStatement
}

type statementKey struct {
	individualURI string
	propertyURI   string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		individuals: make(map[string]*Individual),
		statements:  make(map[statementKey][]DataPropertyStatement),
	}
}

// PutIndividual adds or replaces an individual.
func (s *MemoryStore) PutIndividual(ind Individual) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := ind
	cp.VClassURIs = append([]string(nil), ind.VClassURIs...)
	s.individuals[ind.URI] = &cp
}

// AddStatement appends a statement. The individual does not need to exist.
func (s *MemoryStore) AddStatement(stmt DataPropertyStatement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statementKey{individualURI: stmt.IndividualURI, propertyURI: stmt.PropertyURI}
	s.statements[key] = append(s.statements[key], stmt)
}

// Individual implements IndividualDAO.
func (s *MemoryStore) Individual(_ context.Context, uri string) (*Individual, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ind, ok := s.individuals[uri]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ind
	cp.VClassURIs = append([]string(nil), ind.VClassURIs...)
	return &cp, nil
}

// StatementsByProperty implements DataPropertyStatementDAO.
func (s *MemoryStore) StatementsByProperty(_ context.Context, individualURI, propertyURI string, _ ...LookupOption) ([]DataPropertyStatement, error) {
	if individualURI == "" {
		return nil, ErrEmptyURI
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stmts := s.statements[statementKey{individualURI: individualURI, propertyURI: propertyURI}]
	if len(stmts) == 0 {
		return nil, nil
	}
	return append([]DataPropertyStatement(nil), stmts...), nil
}

// Statements implements DataPropertyStatementDAO.
func (s *MemoryStore) Statements(_ context.Context, individualURI string, _ ...LookupOption) ([]DataPropertyStatement, error) {
	if individualURI == "" {
		return nil, ErrEmptyURI
	}
	return s.StatementsFor(individualURI), nil
}

// Individuals returns every individual sorted by URI.
func (s *MemoryStore) Individuals() []Individual {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Individual, 0, len(s.individuals))
	for _, ind := range s.individuals {
		out = append(out, *ind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// StatementsFor returns every statement of one individual, grouped by property
// in property order and insertion order within a property.
func (s *MemoryStore) StatementsFor(individualURI string) []DataPropertyStatement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []statementKey
	for k := range s.statements {
		if k.individualURI == individualURI {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].propertyURI < keys[j].propertyURI })
	var out []DataPropertyStatement
	for _, k := range keys {
		out = append(out, s.statements[k]...)
	}
	return out
}

// Fixture is the YAML layout accepted by LoadFixture.
//
//	individuals:
//	  - uri: http://vivo.example.edu/individual/n123
//	    label: Lovelace, Ada
//	    types: [foaf:Person]
//	    data:
//	      foaf:firstName: [Ada]
//	      foaf:lastName: [Lovelace]
type Fixture struct {
	Individuals []FixtureIndividual `yaml:"individuals"`
}

// FixtureIndividual is one individual in a fixture. Type and property names
// may be full IRIs or CURIEs with a known prefix.
type FixtureIndividual struct {
	URI   string              `yaml:"uri"`
	Label string              `yaml:"label"`
	Types []string            `yaml:"types"`
	Data  map[string][]string `yaml:"data"`
}

// LoadFixture decodes a fixture into a new MemoryStore.
func LoadFixture(r io.Reader) (*MemoryStore, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	s := NewMemoryStore()
	for i, fi := range fx.Individuals {
		if fi.URI == "" {
			return nil, fmt.Errorf("fixture individual %d: %w", i, ErrEmptyURI)
		}
		ind := Individual{URI: fi.URI, Label: fi.Label}
		for _, t := range fi.Types {
			ind.VClassURIs = append(ind.VClassURIs, profile.ExpandCURIE(t))
		}
		s.PutIndividual(ind)

		if fi.Label != "" {
			s.AddStatement(DataPropertyStatement{IndividualURI: fi.URI, PropertyURI: profile.RDFSLabel, Data: fi.Label})
		}
		for prop, values := range fi.Data {
			propertyURI := profile.ExpandCURIE(prop)
			for _, v := range values {
				s.AddStatement(DataPropertyStatement{IndividualURI: fi.URI, PropertyURI: propertyURI, Data: v})
			}
		}
	}
	return s, nil
}

// LoadFixtureFile reads a fixture from disk.
func LoadFixtureFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}
