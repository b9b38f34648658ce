// Package templatemodel exposes per-individual data to the page renderer.
//
// A Request captures what one HTTP request contributes (context path, absolute
// URL, viewer level, DAO views, properties). An Individual wraps one profile
// subject for the duration of that request and answers the renderer's
// questions: what kind of entity it is, which visualization links apply, the
// self-editing identifier, and the QR-code contact data.
package templatemodel

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/urlbuilder"
)

// PropertySource looks up named configuration properties.
type PropertySource interface {
	Property(key string) (string, bool)
}

// Request is the request-scoped context shared by every model built while
// rendering one page.
type Request struct {
	// ContextPath is the application mount point, "" for the site root.
	ContextPath string

	// URL is the absolute URL of the current request.
	URL *url.URL

	// ViewerLevel is the visibility level DAOs filters at.
	ViewerLevel storage.Level

	// DAOs is filtered by the viewer's visibility level. Lookups that must
	// see every assertion pass storage.IgnoreVisibility.
	DAOs storage.Factory

	Properties PropertySource
	URLs       urlbuilder.Builder
}

// RequestOptions carries the deployment settings NewRequest needs.
type RequestOptions struct {
	ContextPath           string
	DefaultNamespace      string
	TrustForwardedHeaders bool
	ViewerLevel           storage.Level
	Store                 storage.Store
	Policy                *storage.VisibilityPolicy
	Properties            PropertySource
}

// NewRequest builds the request context for r.
func NewRequest(r *http.Request, opts RequestOptions) *Request {
	builder := urlbuilder.NewBuilder(opts.ContextPath, opts.DefaultNamespace)

	var daos storage.Factory
	if opts.Store != nil {
		daos = storage.Filtered(storage.Cached(storage.NewFactory(opts.Store)), opts.Policy, opts.ViewerLevel)
	}

	return &Request{
		ContextPath: builder.ContextPath,
		URL:         absoluteURL(r, opts.TrustForwardedHeaders),
		ViewerLevel: opts.ViewerLevel,
		DAOs:        daos,
		Properties:  opts.Properties,
		URLs:        builder,
	}
}

// SchemeAndHost returns "scheme://host" of the request URL, or "" when the
// request URL is unknown.
func (r *Request) SchemeAndHost() string {
	if r.URL == nil || r.URL.Host == "" {
		return ""
	}
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + r.URL.Host
}

// property returns a trimmed property value; blank counts as unset.
func (r *Request) property(key string) (string, bool) {
	if r.Properties == nil {
		return "", false
	}
	v, ok := r.Properties.Property(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func absoluteURL(r *http.Request, trustForwarded bool) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if trustForwarded {
		if p := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
			scheme = strings.ToLower(p)
		}
		if h := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); h != "" {
			host = h
		}
	}

	u := *r.URL
	u.Scheme = scheme
	u.Host = host
	return &u
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
