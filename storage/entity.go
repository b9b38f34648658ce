package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/c360studio/semstreams/message"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultEntityBucket is the semstreams KV bucket holding entity states.
const DefaultEntityBucket = "ENTITY_STATES"

// entityState is the subset of a semstreams entity state read by this package.
type entityState struct {
	ID        string           `json:"id,omitempty"`
	Triples   []message.Triple `json:"triples"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// tripleValue is a predicate/object pair independent of the transport that
// delivered it.
type tripleValue struct {
	Predicate string
	Object    any
}

// ToTriples converts an individual and its statements to graph triples.
// Statements whose property has no registered predicate are stored under the
// property IRI itself.
func ToTriples(ind Individual, stmts []DataPropertyStatement, source string, now time.Time) []message.Triple {
	entityID := profile.EntityID(ind.URI)
	triple := func(pred string, obj any) message.Triple {
		return message.Triple{
			Subject:    entityID,
			Predicate:  pred,
			Object:     obj,
			Source:     source,
			Timestamp:  now,
			Confidence: 1.0,
		}
	}

	triples := []message.Triple{triple(profile.IndividualURI, ind.URI)}
	for _, c := range ind.VClassURIs {
		triples = append(triples, triple(profile.IndividualType, c))
	}
	if ind.Label != "" {
		triples = append(triples, triple(profile.IndividualLabel, ind.Label))
	}
	for _, st := range stmts {
		if st.PropertyURI == profile.RDFSLabel && st.Data == ind.Label {
			continue
		}
		pred, ok := profile.PredicateForIRI(st.PropertyURI)
		if !ok {
			pred = st.PropertyURI
		}
		triples = append(triples, triple(pred, st.Data))
	}
	return triples
}

// FromTriples rebuilds an individual and its statements from graph triples,
// the inverse of ToTriples.
func FromTriples(requestedURI string, triples []message.Triple) (*Individual, []DataPropertyStatement) {
	values := make([]tripleValue, len(triples))
	for i, t := range triples {
		values[i] = tripleValue{Predicate: t.Predicate, Object: t.Object}
	}
	return fromTriples(requestedURI, values)
}

// fromTriples rebuilds an individual and its statements from graph triples.
// requestedURI is used when the entity carries no URI triple.
func fromTriples(requestedURI string, triples []tripleValue) (*Individual, []DataPropertyStatement) {
	ind := &Individual{URI: requestedURI}
	for _, t := range triples {
		if t.Predicate == profile.IndividualURI {
			if s := objectString(t.Object); s != "" {
				ind.URI = s
			}
		}
	}

	var stmts []DataPropertyStatement
	for _, t := range triples {
		switch t.Predicate {
		case profile.IndividualURI:
			continue
		case profile.IndividualType:
			ind.VClassURIs = append(ind.VClassURIs, objectString(t.Object))
			continue
		case profile.IndividualLabel:
			if ind.Label == "" {
				ind.Label = objectString(t.Object)
			}
		}
		propertyURI, ok := profile.IRIForPredicate(t.Predicate)
		if !ok {
			continue
		}
		stmts = append(stmts, DataPropertyStatement{
			IndividualURI: ind.URI,
			PropertyURI:   propertyURI,
			Data:          objectString(t.Object),
		})
	}
	return ind, stmts
}

func filterByProperty(stmts []DataPropertyStatement, propertyURI string) []DataPropertyStatement {
	var out []DataPropertyStatement
	for _, st := range stmts {
		if st.PropertyURI == propertyURI {
			out = append(out, st)
		}
	}
	return out
}

// objectString renders a triple object as a literal.
func objectString(v any) string {
	switch o := v.(type) {
	case nil:
		return ""
	case string:
		return o
	case float64:
		return strconv.FormatFloat(o, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(o)
	default:
		return fmt.Sprint(o)
	}
}

// KVStore reads individuals from semstreams entity states in a NATS KV bucket.
type KVStore struct {
	bucket jetstream.KeyValue
}

// NewKVStore opens the bucket, creating it if it doesn't exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucket string) (*KVStore, error) {
	if bucket == "" {
		bucket = DefaultEntityBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("open entity bucket %s: %w", bucket, err)
	}
	return &KVStore{bucket: kv}, nil
}

// NewKVStoreFromBucket wraps an already opened bucket.
func NewKVStoreFromBucket(kv jetstream.KeyValue) *KVStore {
	return &KVStore{bucket: kv}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Profile %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// Individual implements IndividualDAO.
func (s *KVStore) Individual(ctx context.Context, uri string) (*Individual, error) {
	ind, _, err := s.load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return ind, nil
}

// StatementsByProperty implements DataPropertyStatementDAO.
func (s *KVStore) StatementsByProperty(ctx context.Context, individualURI, propertyURI string, _ ...LookupOption) ([]DataPropertyStatement, error) {
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
func (s *KVStore) Statements(ctx context.Context, individualURI string, _ ...LookupOption) ([]DataPropertyStatement, error) {
	_, stmts, err := s.load(ctx, individualURI)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return stmts, err
}

// Put writes an individual as an entity state, replacing any previous state.
func (s *KVStore) Put(ctx context.Context, ind Individual, stmts []DataPropertyStatement) error {
	if ind.URI == "" {
		return ErrEmptyURI
	}
	now := time.Now()
	state := entityState{
		ID:        profile.EntityID(ind.URI),
		Triples:   ToTriples(ind, stmts, "semprofile.kv", now),
		UpdatedAt: now,
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal entity state: %w", err)
	}
	if _, err := s.bucket.Put(ctx, state.ID, data); err != nil {
		return fmt.Errorf("put entity state: %w", err)
	}
	return nil
}

func (s *KVStore) load(ctx context.Context, uri string) (*Individual, []DataPropertyStatement, error) {
	if uri == "" {
		return nil, nil, ErrEmptyURI
	}
	entry, err := s.bucket.Get(ctx, profile.EntityID(uri))
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get entity state: %w", err)
	}

	ind, stmts, err := decodeEntityState(uri, entry.Value())
	if err != nil {
		return nil, nil, err
	}
	return ind, stmts, nil
}

// decodeEntityState parses a KV value into an individual and its statements.
func decodeEntityState(uri string, data []byte) (*Individual, []DataPropertyStatement, error) {
	var state entityState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil, fmt.Errorf("unmarshal entity state: %w", err)
	}
	triples := make([]tripleValue, 0, len(state.Triples))
	for _, t := range state.Triples {
		triples = append(triples, tripleValue{Predicate: t.Predicate, Object: t.Object})
	}
	ind, stmts := fromTriples(uri, triples)
	return ind, stmts, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, jetstream.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found")
}
