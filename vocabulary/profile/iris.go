package profile

import (
	"strings"

	"github.com/google/uuid"
)

// Ontology namespaces used by profile pages.
const (
	NamespaceFOAF = "http://xmlns.com/foaf/0.1/"
	NamespaceCore = "http://vivoweb.org/ontology/core#"
	NamespaceRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceXSD  = "http://www.w3.org/2001/XMLSchema#"
)

// Class IRIs checked by the presentation layer.
const (
	// ClassPerson is foaf:Person.
	ClassPerson = NamespaceFOAF + "Person"

	// ClassOrganization is foaf:Organization.
	ClassOrganization = NamespaceFOAF + "Organization"
)

// Property IRIs.
const (
	FOAFFirstName      = NamespaceFOAF + "firstName"
	FOAFLastName       = NamespaceFOAF + "lastName"
	CorePreferredTitle = NamespaceCore + "preferredTitle"
	CorePhoneNumber    = NamespaceCore + "phoneNumber"
	CoreEmail          = NamespaceCore + "email"
	RDFSLabel          = NamespaceRDFS + "label"
	RDFType            = NamespaceRDF + "type"
)

// entityIDPrefix scopes individual entities in the graph.
// Format: profile.local.vivo.individual.individual.<uuid>
const entityIDPrefix = "profile.local.vivo.individual.individual."

// EntityID returns the graph entity ID for an individual URI.
// The ID is a name-based UUID (v5) so it is stable across processes and only
// contains characters that are valid in NATS KV keys.
func EntityID(individualURI string) string {
	return entityIDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(individualURI)).String()
}

// IsEntityID reports whether id was produced by EntityID.
func IsEntityID(id string) bool {
	rest, ok := strings.CutPrefix(id, entityIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// LocalName returns the part of an IRI after the last '#' or '/'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// Namespace returns the part of an IRI up to and including the last '#' or '/'.
func Namespace(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[:i+1]
	}
	return ""
}

// prefixes are the CURIE prefixes understood by ExpandCURIE.
var prefixes = map[string]string{
	"foaf": NamespaceFOAF,
	"core": NamespaceCore,
	"vivo": NamespaceCore,
	"rdf":  NamespaceRDF,
	"rdfs": NamespaceRDFS,
}

// Prefixes returns the canonical prefix for each namespace, suitable for
// RDF serializations.
func Prefixes() map[string]string {
	return map[string]string{
		"foaf": NamespaceFOAF,
		"core": NamespaceCore,
		"rdf":  NamespaceRDF,
		"rdfs": NamespaceRDFS,
		"xsd":  NamespaceXSD,
	}
}

// ExpandCURIE expands a prefixed name such as "foaf:firstName" into a full IRI.
// Full IRIs and unknown prefixes are returned unchanged.
func ExpandCURIE(s string) string {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return s
	}
	if ns, known := prefixes[prefix]; known {
		return ns + local
	}
	return s
}
