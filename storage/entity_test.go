package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/c360studio/semprofile/vocabulary/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTriplesAndBack(t *testing.T) {
	ind := Individual{
		URI:        adaURI,
		Label:      "Lovelace, Ada",
		VClassURIs: []string{profile.ClassPerson},
	}
	stmts := []DataPropertyStatement{
		{IndividualURI: adaURI, PropertyURI: profile.RDFSLabel, Data: "Lovelace, Ada"},
		{IndividualURI: adaURI, PropertyURI: profile.FOAFFirstName, Data: "Ada"},
		{IndividualURI: adaURI, PropertyURI: "http://example.org/ontology#orcid", Data: "0000-0001"},
	}
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	triples := ToTriples(ind, stmts, "test", now)
	require.Len(t, triples, 5, "uri, type, label, firstName, orcid")

	entityID := profile.EntityID(adaURI)
	preds := make(map[string]any)
	for _, tr := range triples {
		assert.Equal(t, entityID, tr.Subject)
		assert.Equal(t, "test", tr.Source)
		assert.Equal(t, now, tr.Timestamp)
		preds[tr.Predicate] = tr.Object
	}
	assert.Equal(t, adaURI, preds[profile.IndividualURI])
	assert.Equal(t, profile.ClassPerson, preds[profile.IndividualType])
	assert.Equal(t, "Ada", preds[profile.PersonFirstName])
	assert.Equal(t, "0000-0001", preds["http://example.org/ontology#orcid"])

	data, err := json.Marshal(entityState{ID: entityID, Triples: triples, UpdatedAt: now})
	require.NoError(t, err)

	got, gotStmts, err := decodeEntityState("ignored-when-uri-triple-present", data)
	require.NoError(t, err)
	assert.Equal(t, adaURI, got.URI)
	assert.Equal(t, "Lovelace, Ada", got.Label)
	assert.True(t, got.IsVClass(profile.ClassPerson))

	assert.Len(t, filterByProperty(gotStmts, profile.FOAFFirstName), 1)
	assert.Len(t, filterByProperty(gotStmts, profile.RDFSLabel), 1)
	orcid := filterByProperty(gotStmts, "http://example.org/ontology#orcid")
	require.Len(t, orcid, 1)
	assert.Equal(t, "0000-0001", orcid[0].Data)
}

func TestFromTriples_UnknownPredicatesSkipped(t *testing.T) {
	ind, stmts := fromTriples(adaURI, []tripleValue{
		{Predicate: "agent.loop.status", Object: "running"},
		{Predicate: profile.PersonPhoneNumber, Object: float64(5551234)},
		{Predicate: profile.IndividualType, Object: profile.ClassOrganization},
	})
	assert.Equal(t, adaURI, ind.URI)
	assert.True(t, ind.IsVClass(profile.ClassOrganization))
	require.Len(t, stmts, 1)
	assert.Equal(t, profile.CorePhoneNumber, stmts[0].PropertyURI)
	assert.Equal(t, "5551234", stmts[0].Data)
}

func TestDecodeEntityState_Invalid(t *testing.T) {
	_, _, err := decodeEntityState(adaURI, []byte("{not json"))
	assert.Error(t, err)
}

func TestObjectString(t *testing.T) {
	assert.Equal(t, "", objectString(nil))
	assert.Equal(t, "x", objectString("x"))
	assert.Equal(t, "1.5", objectString(1.5))
	assert.Equal(t, "true", objectString(true))
	assert.Equal(t, "7", objectString(7))
}

func TestFromTriples(t *testing.T) {
	ind := Individual{URI: adaURI, VClassURIs: []string{profile.ClassPerson}}
	stmts := []DataPropertyStatement{
		{IndividualURI: adaURI, PropertyURI: profile.CoreEmail, Data: "ada@example.edu"},
	}

	got, gotStmts := FromTriples("", ToTriples(ind, stmts, "test", time.Now()))
	assert.Equal(t, adaURI, got.URI)
	assert.Equal(t, []string{profile.ClassPerson}, got.VClassURIs)
	require.Len(t, gotStmts, 1)
	assert.Equal(t, profile.CoreEmail, gotStmts[0].PropertyURI)
	assert.Equal(t, adaURI, gotStmts[0].IndividualURI)
}
