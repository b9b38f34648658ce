// Package graph publishes profile individuals to the knowledge graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/c360studio/semstreams/message"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// DefaultSource is the triple source recorded for seeded individuals.
const DefaultSource = "semprofile.seed"

// StreamPublisher publishes to a JetStream subject. *natsclient.Client
// satisfies it.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// NewIndividualPayload builds the ingest payload for an individual.
func NewIndividualPayload(ind storage.Individual, stmts []storage.DataPropertyStatement, source string, now time.Time) *IndividualPayload {
	return &IndividualPayload{
		EntityID_:  profile.EntityID(ind.URI),
		URI:        ind.URI,
		TripleData: storage.ToTriples(ind, stmts, source, now),
		UpdatedAt:  now,
	}
}

// PublishIndividual publishes an individual and its statements to the graph
// ingestion stream.
func PublishIndividual(ctx context.Context, pub StreamPublisher, ind storage.Individual, stmts []storage.DataPropertyStatement) error {
	if pub == nil {
		return nil // Skip publishing if no NATS client (graceful degradation)
	}

	payload := NewIndividualPayload(ind, stmts, DefaultSource, time.Now())
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid individual %s: %w", ind.URI, err)
	}

	msg := message.NewBaseMessage(IndividualType, payload, DefaultSource)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal individual entity: %w", err)
	}

	if err := pub.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
		return fmt.Errorf("publish individual entity: %w", err)
	}

	return nil
}

// PublishStore publishes every individual held by a memory store and returns
// how many were published.
func PublishStore(ctx context.Context, pub StreamPublisher, s *storage.MemoryStore) (int, error) {
	n := 0
	for _, ind := range s.Individuals() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := PublishIndividual(ctx, pub, ind, s.StatementsFor(ind.URI)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
