// Package export serializes profile individuals as linked data.
//
// Only data property statements and type assertions are exported; they are
// written in the order the store returns them.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/vocabulary/profile"
)

// Document is one subject and its statements.
type Document struct {
	Subject    string
	Types      []string
	Statements []storage.DataPropertyStatement
}

// NewDocument builds a document for ind. Statements about other subjects
// are dropped.
func NewDocument(ind storage.Individual, stmts []storage.DataPropertyStatement) Document {
	doc := Document{Subject: ind.URI, Types: ind.VClassURIs}
	for _, st := range stmts {
		if st.IndividualURI == ind.URI {
			doc.Statements = append(doc.Statements, st)
		}
	}
	return doc
}

// Write serializes docs to w in format.
func Write(w io.Writer, format Format, docs ...Document) error {
	var out string
	switch format {
	case FormatTurtle:
		out = toTurtle(docs)
	case FormatNTriples:
		out = toNTriples(docs)
	case FormatJSONLD:
		data, err := json.MarshalIndent(toJSONLD(docs), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json-ld: %w", err)
		}
		out = string(data) + "\n"
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

func toTurtle(docs []Document) string {
	var sb strings.Builder

	prefixes := profile.Prefixes()
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", name, prefixes[name])
	}

	for _, doc := range docs {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "<%s>\n", doc.Subject)

		var lines []string
		for _, t := range doc.Types {
			lines = append(lines, "a "+turtleIRI(t, prefixes))
		}
		for _, st := range doc.Statements {
			lines = append(lines, turtleIRI(st.PropertyURI, prefixes)+" "+turtleLiteral(st, prefixes))
		}
		if len(lines) == 0 {
			lines = []string{"a " + turtleIRI(profile.NamespaceRDFS+"Resource", prefixes)}
		}
		for i, line := range lines {
			terminator := " ;"
			if i == len(lines)-1 {
				terminator = " ."
			}
			sb.WriteString("    " + line + terminator + "\n")
		}
	}
	return sb.String()
}

// turtleIRI writes iri as a prefixed name when its local part is a plain
// name, otherwise in angle brackets.
func turtleIRI(iri string, prefixes map[string]string) string {
	ns, local := profile.Namespace(iri), profile.LocalName(iri)
	if isPlainName(local) {
		for name, p := range prefixes {
			if p == ns {
				return name + ":" + local
			}
		}
	}
	return "<" + iri + ">"
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_'
		if !letter && (i == 0 || !(r >= '0' && r <= '9' || r == '-')) {
			return false
		}
	}
	return true
}

func turtleLiteral(st storage.DataPropertyStatement, prefixes map[string]string) string {
	lit := `"` + escapeString(st.Data) + `"`
	switch {
	case st.Lang != "":
		return lit + "@" + st.Lang
	case st.Datatype != "":
		return lit + "^^" + turtleIRI(st.Datatype, prefixes)
	}
	return lit
}

func toNTriples(docs []Document) string {
	var sb strings.Builder
	for _, doc := range docs {
		for _, t := range doc.Types {
			fmt.Fprintf(&sb, "<%s> <%s> <%s> .\n", doc.Subject, profile.RDFType, t)
		}
		for _, st := range doc.Statements {
			lit := `"` + escapeString(st.Data) + `"`
			switch {
			case st.Lang != "":
				lit += "@" + st.Lang
			case st.Datatype != "":
				lit += "^^<" + st.Datatype + ">"
			}
			fmt.Fprintf(&sb, "<%s> <%s> %s .\n", doc.Subject, st.PropertyURI, lit)
		}
	}
	return sb.String()
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]string `json:"@context"`
	Graph   []JSONLDNode      `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON inlines Properties next to @id and @type.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	for k, v := range n.Properties {
		m[k] = v
	}
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	return json.Marshal(m)
}

func toJSONLD(docs []Document) JSONLDDocument {
	out := JSONLDDocument{Context: profile.Prefixes(), Graph: make([]JSONLDNode, 0, len(docs))}
	for _, doc := range docs {
		node := JSONLDNode{ID: doc.Subject, Type: doc.Types, Properties: make(map[string]any)}
		for _, st := range doc.Statements {
			values, _ := node.Properties[st.PropertyURI].([]any)
			node.Properties[st.PropertyURI] = append(values, jsonLDValue(st))
		}
		out.Graph = append(out.Graph, node)
	}
	return out
}

func jsonLDValue(st storage.DataPropertyStatement) any {
	switch {
	case st.Lang != "":
		return map[string]string{"@value": st.Data, "@language": st.Lang}
	case st.Datatype != "":
		return map[string]string{"@value": st.Data, "@type": st.Datatype}
	}
	return st.Data
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeString(s string) string {
	return literalEscaper.Replace(s)
}
