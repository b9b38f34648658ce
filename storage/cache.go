package storage

import (
	"context"
	"sync"
)

// Cached returns a factory that memoizes lookups for the lifetime of one
// request. Each individual and its statement list is fetched from f at most
// once; StatementsByProperty is answered from the cached statement list.
// Failed lookups are not cached.
func Cached(f Factory) Factory {
	c := &requestCache{
		next:        f,
		individuals: make(map[string]*Individual),
		statements:  make(map[string][]DataPropertyStatement),
	}
	return Factory{Individuals: c, DataPropertyStatements: c}
}

type requestCache struct {
	next Factory

	mu          sync.Mutex
	individuals map[string]*Individual
	statements  map[string][]DataPropertyStatement
}

func (c *requestCache) Individual(ctx context.Context, uri string) (*Individual, error) {
	c.mu.Lock()
	ind, ok := c.individuals[uri]
	c.mu.Unlock()
	if ok {
		return ind, nil
	}

	ind, err := c.next.Individuals.Individual(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.individuals[uri] = ind
	c.mu.Unlock()
	return ind, nil
}

func (c *requestCache) StatementsByProperty(ctx context.Context, individualURI, propertyURI string, opts ...LookupOption) ([]DataPropertyStatement, error) {
	stmts, err := c.Statements(ctx, individualURI, opts...)
	if err != nil {
		return nil, err
	}
	return filterByProperty(stmts, propertyURI), nil
}

func (c *requestCache) Statements(ctx context.Context, individualURI string, opts ...LookupOption) ([]DataPropertyStatement, error) {
	c.mu.Lock()
	stmts, ok := c.statements[individualURI]
	c.mu.Unlock()
	if ok {
		return stmts, nil
	}

	stmts, err := c.next.DataPropertyStatements.Statements(ctx, individualURI, opts...)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.statements[individualURI] = stmts
	c.mu.Unlock()
	return stmts, nil
}
