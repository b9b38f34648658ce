package profile

import (
	"strings"

	"github.com/c360studio/semstreams/vocabulary"
)

// Individual predicates describe the graph entity itself.
const (
	// IndividualURI holds the IRI the entity was minted for.
	IndividualURI = "profile.individual.uri"

	// IndividualType holds one rdf:type class IRI. Multi-valued.
	IndividualType = "profile.individual.type"

	// IndividualLabel is the display label (rdfs:label).
	IndividualLabel = "profile.individual.label"
)

// Person predicates hold contact-card data.
const (
	PersonFirstName      = "profile.person.first_name"
	PersonLastName       = "profile.person.last_name"
	PersonPreferredTitle = "profile.person.preferred_title"
	PersonPhoneNumber    = "profile.person.phone_number"
	PersonEmail          = "profile.person.email"
)

// iriByPredicate is the translation table between dotted predicates and IRIs.
var iriByPredicate = map[string]string{
	IndividualType:       RDFType,
	IndividualLabel:      RDFSLabel,
	PersonFirstName:      FOAFFirstName,
	PersonLastName:       FOAFLastName,
	PersonPreferredTitle: CorePreferredTitle,
	PersonPhoneNumber:    CorePhoneNumber,
	PersonEmail:          CoreEmail,
}

var predicateByIRI = func() map[string]string {
	m := make(map[string]string, len(iriByPredicate))
	for pred, iri := range iriByPredicate {
		m[iri] = pred
	}
	return m
}()

// PredicateForIRI returns the dotted predicate stored for a property IRI.
func PredicateForIRI(iri string) (string, bool) {
	pred, ok := predicateByIRI[iri]
	return pred, ok
}

// IRIForPredicate returns the property IRI for a dotted predicate.
// Predicates that are already IRIs (stored verbatim by other producers) are
// returned unchanged.
func IRIForPredicate(predicate string) (string, bool) {
	if iri, ok := iriByPredicate[predicate]; ok {
		return iri, true
	}
	if strings.Contains(predicate, "://") {
		return predicate, true
	}
	return "", false
}

func init() {
	vocabulary.Register(IndividualURI,
		vocabulary.WithDescription("IRI of the profile individual"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(vocabulary.DcIdentifier))

	vocabulary.Register(IndividualType,
		vocabulary.WithDescription("Ontology class of the individual"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(RDFType))

	vocabulary.Register(IndividualLabel,
		vocabulary.WithDescription("Display label"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(RDFSLabel))

	vocabulary.Register(PersonFirstName,
		vocabulary.WithDescription("Given name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(FOAFFirstName))

	vocabulary.Register(PersonLastName,
		vocabulary.WithDescription("Family name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(FOAFLastName))

	vocabulary.Register(PersonPreferredTitle,
		vocabulary.WithDescription("Preferred job or honorific title"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(CorePreferredTitle))

	vocabulary.Register(PersonPhoneNumber,
		vocabulary.WithDescription("Primary phone number"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(CorePhoneNumber))

	vocabulary.Register(PersonEmail,
		vocabulary.WithDescription("Primary email address"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(CoreEmail))
}
