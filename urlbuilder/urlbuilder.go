// Package urlbuilder builds application-relative URLs for profile pages.
//
// All paths are routed under the deployment's context path (for example "/vivo"
// when the application is mounted below the site root). Query parameters are
// kept in insertion order so generated URLs are stable.
package urlbuilder

import (
	"net/url"
	"strings"

	"github.com/c360studio/semprofile/vocabulary/profile"
)

// Route is a named application path.
type Route string

const (
	RouteVisualization Route = "/visualization"
	RouteIndividual    Route = "/individual"
	RouteDisplay       Route = "/display"
	RouteQRCode        Route = "/qrcode"
	RouteQRCodeAbout   Route = "/qrcode/about"
)

// Path returns the route path without the context path.
func (r Route) Path() string {
	return string(r)
}

// Param is one query parameter.
type Param struct {
	Name  string
	Value string
}

// ParamMap is an ordered set of query parameters. Putting an existing name
// replaces its value in place.
type ParamMap struct {
	params []Param
}

// NewParamMap builds a ParamMap from alternating names and values.
// It panics on an odd number of arguments.
func NewParamMap(kv ...string) ParamMap {
	if len(kv)%2 != 0 {
		panic("urlbuilder: NewParamMap requires name/value pairs")
	}
	var m ParamMap
	for i := 0; i < len(kv); i += 2 {
		m.Put(kv[i], kv[i+1])
	}
	return m
}

// Put sets name to value.
func (m *ParamMap) Put(name, value string) {
	for i := range m.params {
		if m.params[i].Name == name {
			m.params[i].Value = value
			return
		}
	}
	m.params = append(m.params, Param{Name: name, Value: value})
}

// PutAll copies every parameter of other into m.
func (m *ParamMap) PutAll(other ParamMap) {
	for _, p := range other.params {
		m.Put(p.Name, p.Value)
	}
}

// Get returns the value for name.
func (m ParamMap) Get(name string) (string, bool) {
	for _, p := range m.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Len returns the number of parameters.
func (m ParamMap) Len() int {
	return len(m.params)
}

// Encode renders the parameters as a query string without the leading '?'.
func (m ParamMap) Encode() string {
	var sb strings.Builder
	for i, p := range m.params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(URLEncode(p.Name))
		sb.WriteByte('=')
		sb.WriteString(URLEncode(p.Value))
	}
	return sb.String()
}

// AddParams appends params to rawURL, joining with '?' or '&' as needed.
func AddParams(rawURL string, params ParamMap) string {
	if params.Len() == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode()
}

// URLEncode form-encodes s for use in a query string.
func URLEncode(s string) string {
	return url.QueryEscape(s)
}

// Builder produces URLs for one deployment.
type Builder struct {
	// ContextPath is the mount point of the application, "" for the site root.
	ContextPath string

	// DefaultNamespace is the namespace of individuals minted by this
	// application. Their profiles get short "/display/<localName>" URLs.
	DefaultNamespace string
}

// NewBuilder returns a Builder with a normalized context path.
func NewBuilder(contextPath, defaultNamespace string) Builder {
	return Builder{
		ContextPath:      NormalizeContextPath(contextPath),
		DefaultNamespace: defaultNamespace,
	}
}

// URL returns the context-relative URL for path with params appended.
func (b Builder) URL(path string, params ParamMap) string {
	return AddParams(b.ContextPath+path, params)
}

// RouteURL is URL for a named route.
func (b Builder) RouteURL(route Route, params ParamMap) string {
	return b.URL(route.Path(), params)
}

// ProfileURL returns the profile page URL for an individual.
func (b Builder) ProfileURL(individualURI string) string {
	if b.DefaultNamespace != "" && profile.Namespace(individualURI) == b.DefaultNamespace {
		return b.ContextPath + RouteDisplay.Path() + "/" + profile.LocalName(individualURI)
	}
	return b.RouteURL(RouteIndividual, NewParamMap("uri", individualURI))
}

// NormalizeContextPath returns p with a leading slash and no trailing slash,
// or "" for the root.
func NormalizeContextPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
