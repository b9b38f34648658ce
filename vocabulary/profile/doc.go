// Package profile provides vocabulary predicates for researcher profiles.
//
// Profile data is stored in the knowledge graph under dotted predicates
// (domain.category.property) so NATS wildcard queries keep working, while the
// presentation layer addresses properties by their ontology IRIs (FOAF, VIVO
// core, RDFS). Every predicate is registered with vocabulary.Register and carries
// its IRI through vocabulary.WithIRI, which makes the translation table in this
// package the single place where the two naming schemes meet.
//
// # Usage
//
//	import "github.com/c360studio/semprofile/vocabulary/profile"
//
//	pred, ok := profile.PredicateForIRI(profile.FOAFFirstName) // "profile.person.first_name"
//	iri, ok := profile.IRIForPredicate(pred)                   // foaf:firstName
//
// Entity IDs for individuals are derived from their URI with EntityID, so the
// same individual always lands on the same graph entity and KV key.
package profile
