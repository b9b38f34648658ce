package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "profile",
		Category:    "individual",
		Version:     "v1",
		Description: "Profile individual payload for graph ingestion with triples",
		Factory:     func() any { return &IndividualPayload{} },
	})
	if err != nil {
		panic("failed to register IndividualPayload: " + err.Error())
	}
}

// IndividualType is the message type for profile individual payloads.
var IndividualType = message.Type{Domain: "profile", Category: "individual", Version: "v1"}

// IndividualPayload implements message.Payload and graph.Graphable for
// profile individuals.
type IndividualPayload struct {
	EntityID_  string           `json:"id"`
	URI        string           `json:"uri"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (p *IndividualPayload) EntityID() string          { return p.EntityID_ }
func (p *IndividualPayload) Triples() []message.Triple { return p.TripleData }
func (p *IndividualPayload) Schema() message.Type      { return IndividualType }

func (p *IndividualPayload) Validate() error {
	if p.EntityID_ == "" {
		return errors.New("entity ID is required")
	}
	if p.URI == "" {
		return errors.New("individual URI is required")
	}
	if len(p.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

func (p *IndividualPayload) MarshalJSON() ([]byte, error) {
	type Alias IndividualPayload
	return json.Marshal((*Alias)(p))
}

func (p *IndividualPayload) UnmarshalJSON(data []byte) error {
	type Alias IndividualPayload
	return json.Unmarshal(data, (*Alias)(p))
}
