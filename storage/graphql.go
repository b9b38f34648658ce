package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/pkg/retry"
)

const (
	// maxGraphErrorBodySize limits the size of error response bodies.
	maxGraphErrorBodySize = 4096

	graphQLComponent = "graphql-store"
)

// GraphQLStore reads individuals from the semstreams graph gateway.
type GraphQLStore struct {
	gatewayURL  string
	httpClient  *http.Client
	retryConfig retry.Config
}

// GraphQLOption configures a GraphQLStore.
type GraphQLOption func(*GraphQLStore)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GraphQLOption {
	return func(s *GraphQLStore) {
		s.httpClient = c
	}
}

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg retry.Config) GraphQLOption {
	return func(s *GraphQLStore) {
		s.retryConfig = cfg
	}
}

// NewGraphQLStore creates a store for the gateway at gatewayURL.
func NewGraphQLStore(gatewayURL string, opts ...GraphQLOption) *GraphQLStore {
	s := &GraphQLStore{
		gatewayURL:  strings.TrimRight(gatewayURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// graphQLResponse represents a GraphQL response.
type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const entityQuery = `query($id: String!) {
	entity(id: $id) {
		id
		triples { predicate object }
	}
}`

// Individual implements IndividualDAO.
func (s *GraphQLStore) Individual(ctx context.Context, uri string) (*Individual, error) {
	ind, _, err := s.load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return ind, nil
}

// StatementsByProperty implements DataPropertyStatementDAO.
func (s *GraphQLStore) StatementsByProperty(ctx context.Context, individualURI, propertyURI string, _ ...LookupOption) ([]DataPropertyStatement, error) {
	_, stmts, err := s.load(ctx, individualURI)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return filterByProperty(stmts, propertyURI), nil
}

// Statements implements DataPropertyStatementDAO.
func (s *GraphQLStore) Statements(ctx context.Context, individualURI string, _ ...LookupOption) ([]DataPropertyStatement, error) {
	_, stmts, err := s.load(ctx, individualURI)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return stmts, err
}

func (s *GraphQLStore) load(ctx context.Context, uri string) (*Individual, []DataPropertyStatement, error) {
	if uri == "" {
		return nil, nil, ErrEmptyURI
	}

	var data map[string]any
	err := retry.Do(ctx, s.retryConfig, func() error {
		d, err := s.executeQuery(ctx, entityQuery, map[string]any{
			"id": sanitizeGraphQLString(profile.EntityID(uri)),
		})
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query entity %s: %w", uri, err)
	}

	entityMap, ok := data["entity"].(map[string]any)
	if !ok {
		return nil, nil, ErrNotFound
	}
	ind, stmts := fromTriples(uri, parseGraphTriples(entityMap))
	return ind, stmts, nil
}

// executeQuery runs a GraphQL query. Transport failures and 5xx responses are
// retried; everything else is marked non-retryable.
func (s *GraphQLStore) executeQuery(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	reqBody := map[string]any{"query": query}
	if variables != nil {
		reqBody["variables"] = variables
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, retry.NonRetryable(errs.WrapInvalid(err, graphQLComponent, "executeQuery", "marshal query"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+"/graphql", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, retry.NonRetryable(errs.WrapInvalid(err, graphQLComponent, "executeQuery", "create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errs.WrapTransient(err, graphQLComponent, "executeQuery", "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxGraphErrorBodySize))
		statusErr := fmt.Errorf("graph gateway returned %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, errs.WrapTransient(statusErr, graphQLComponent, "executeQuery", "gateway status")
		}
		return nil, retry.NonRetryable(errs.WrapInvalid(statusErr, graphQLComponent, "executeQuery", "gateway status"))
	}

	var result graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, retry.NonRetryable(errs.WrapInvalid(err, graphQLComponent, "executeQuery", "decode response"))
	}

	if len(result.Errors) > 0 {
		msg := result.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "not found") {
			return map[string]any{}, nil
		}
		return nil, retry.NonRetryable(fmt.Errorf("graphql error: %s", msg))
	}

	return result.Data, nil
}

// parseGraphTriples extracts predicate/object pairs from an entity map.
func parseGraphTriples(entityMap map[string]any) []tripleValue {
	raw, ok := entityMap["triples"].([]any)
	if !ok {
		return nil
	}
	triples := make([]tripleValue, 0, len(raw))
	for _, t := range raw {
		tripleMap, ok := t.(map[string]any)
		if !ok {
			continue
		}
		pred, _ := tripleMap["predicate"].(string)
		if pred == "" {
			continue
		}
		triples = append(triples, tripleValue{Predicate: pred, Object: tripleMap["object"]})
	}
	return triples
}

// sanitizeGraphQLString strips NUL bytes from query variables. JSON encoding
// of the variables does the escaping.
func sanitizeGraphQLString(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
