package profileapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semprofile/config"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/templatemodel"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/metric"
)

const (
	adaURI     = "http://vivo.example.org/individual/ada"
	cornellURI = "http://vivo.example.org/individual/cornell"
	netIDProp  = "http://vivo.example.org/ns#netId"
)

const fixture = `
individuals:
  - uri: http://vivo.example.org/individual/ada
    label: Lovelace, Ada
    types: [foaf:Person]
    data:
      foaf:firstName: [Ada]
      foaf:lastName: [Lovelace]
      core:email: [ada@example.org]
      core:phoneNumber: ["+44 20 7946 0000"]
      http://vivo.example.org/ns#netId: [al123]
  - uri: http://vivo.example.org/individual/cornell
    label: Cornell University
    types: [foaf:Organization]
`

type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) StatementsByProperty(context.Context, string, string, ...storage.LookupOption) ([]storage.DataPropertyStatement, error) {
	return nil, errors.New("backend unavailable")
}

type stubQR struct {
	content string
}

func (s *stubQR) PNG(content string) ([]byte, error) {
	s.content = content
	return []byte("\x89PNG\r\n\x1a\nstub"), nil
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) (*Component, *httptest.Server) {
	t.Helper()

	if !hasStore(opts) {
		s, err := storage.LoadFixture(strings.NewReader(fixture))
		require.NoError(t, err)
		opts = append(opts, WithStore(s))
	}

	c, err := New(cfg, component.Dependencies{MetricsRegistry: metric.NewMetricsRegistry()}, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(time.Second) })

	mux := http.NewServeMux()
	c.RegisterHTTPHandlers(cfg.ContextPath, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return c, srv
}

func hasStore(opts []Option) bool {
	scratch := &Component{}
	for _, opt := range opts {
		opt(scratch)
	}
	return scratch.store != nil
}

func get(t *testing.T, rawURL string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleIndividual(t *testing.T) {
	props := config.NewProperties(map[string]string{config.SelfEditingIDMatchingProperty: netIDProp})
	_, srv := newTestServer(t, Config{ContextPath: "/vivo"}, WithProperties(props))

	resp := get(t, srv.URL+"/vivo/individual?uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var snap templatemodel.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, adaURI, snap.URI)
	assert.Equal(t, "Lovelace, Ada", snap.Name)
	assert.True(t, snap.IsPerson)
	assert.Equal(t, "/vivo/visualization?uri="+url.QueryEscape(adaURI)+"&vis=person_level&vis_mode=coauthor", snap.CoAuthorVisURL)
	assert.Empty(t, snap.TemporalGraphURL)
	assert.Equal(t, "al123", snap.SelfEditingID)
	assert.Equal(t, "Ada", snap.QRData[templatemodel.QRFirstName])
	assert.Equal(t, srv.URL+"/vivo/individual?uri="+url.QueryEscape(adaURI), snap.QRData[templatemodel.QRExternalURL])
	assert.Equal(t, "/vivo/qrcode?uri="+url.QueryEscape(adaURI), snap.QRData[templatemodel.QRExportQRCodeURL])
	assert.Equal(t, "/vivo/qrcode/about", snap.QRData[templatemodel.QRAboutQRCodesURL])
	assert.NotContains(t, snap.QRData, templatemodel.QRPreferredTitle)
}

func TestHandleIndividual_Organization(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp := get(t, srv.URL+"/individual?uri="+url.QueryEscape(cornellURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap templatemodel.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.True(t, snap.IsOrganization)
	assert.Empty(t, snap.CoAuthorVisURL)
	assert.Empty(t, snap.CoInvestigatorVisURL)
	assert.Contains(t, snap.TemporalGraphURL, "vis=entity_comparison")
	assert.Empty(t, snap.SelfEditingID)
	assert.Nil(t, snap.QRData)
}

func TestHandleIndividual_Errors(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"missing uri", http.MethodGet, "/individual", http.StatusBadRequest},
		{"blank uri", http.MethodGet, "/individual?uri=%20", http.StatusBadRequest},
		{"unknown individual", http.MethodGet, "/individual?uri=" + url.QueryEscape("http://vivo.example.org/individual/nobody"), http.StatusNotFound},
		{"wrong method", http.MethodPost, "/individual?uri=" + url.QueryEscape(adaURI), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandleIndividual_StoreFailure(t *testing.T) {
	s, err := storage.LoadFixture(strings.NewReader(fixture))
	require.NoError(t, err)
	c, srv := newTestServer(t, Config{}, WithStore(failingStore{MemoryStore: s}))

	resp := get(t, srv.URL+"/individual?uri="+url.QueryEscape(adaURI), nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	flow := c.DataFlow()
	assert.Greater(t, flow.ErrorRate, 0.0)
	assert.False(t, flow.LastActivity.IsZero())
}

func TestHandleIndividual_Visibility(t *testing.T) {
	cfg := Config{
		ViewerLevel: "public",
		Visibility: []config.VisibilityRuleConfig{
			{Pattern: "http://vivoweb.org/ontology/core#*", MinLevel: "curator"},
		},
	}
	_, srv := newTestServer(t, cfg)

	resp := get(t, srv.URL+"/individual?uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap templatemodel.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	// Contact export reads past the viewer's visibility level.
	assert.Equal(t, "ada@example.org", snap.QRData[templatemodel.QREmail])
	assert.Equal(t, "+44 20 7946 0000", snap.QRData[templatemodel.QRPhoneNumber])
}

func TestHandleIndividual_ForwardedHeaders(t *testing.T) {
	_, srv := newTestServer(t, Config{TrustForwardedHeaders: true, DefaultNamespace: "http://vivo.example.org/individual/"})

	header := http.Header{}
	header.Set("X-Forwarded-Proto", "https")
	header.Set("X-Forwarded-Host", "vivo.example.edu")
	header.Set(RequestIDHeader, "req-123")
	resp := get(t, srv.URL+"/individual?uri="+url.QueryEscape(adaURI), header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))

	var snap templatemodel.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "/display/ada", snap.ProfileURL)
	assert.Equal(t, "https://vivo.example.edu/display/ada", snap.QRData[templatemodel.QRExternalURL])
}

func TestHandleQRCode(t *testing.T) {
	qr := &stubQR{}
	_, srv := newTestServer(t, Config{ContextPath: "/vivo"}, WithQRGenerator(qr))

	resp := get(t, srv.URL+"/vivo/qrcode?uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, `inline; filename="ada-lovelace-qrcode.png"`, resp.Header.Get("Content-Disposition"))

	var body bytes.Buffer
	_, err := body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body.Bytes(), []byte("\x89PNG")))

	assert.Contains(t, qr.content, "FN:Ada Lovelace")
	assert.Contains(t, qr.content, "EMAIL:ada@example.org")
}

func TestHandleQRCode_RealEncoder(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp := get(t, srv.URL+"/qrcode?uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err := body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestHandleQRCode_VCard(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp := get(t, srv.URL+"/qrcode?format=vcard&uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vcard; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ada-lovelace-qrcode.vcf"`, resp.Header.Get("Content-Disposition"))

	var body bytes.Buffer
	_, err := body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "BEGIN:VCARD")
	assert.Contains(t, body.String(), "N:Lovelace;Ada;;;")
}

func TestHandleQRCode_NotFound(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp := get(t, srv.URL+"/qrcode?uri="+url.QueryEscape("http://vivo.example.org/individual/nobody"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleQRCodeAbout(t *testing.T) {
	_, srv := newTestServer(t, Config{ContextPath: "/vivo"})

	resp := get(t, srv.URL+"/vivo/qrcode/about", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var about AboutQRCodes
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&about))
	assert.Equal(t, "vCard 3.0", about.Format)
	assert.Contains(t, about.Fields, templatemodel.QREmail)
	assert.Equal(t, "/vivo/qrcode?uri={uri}", about.ExportURL)
}

func TestHandlers_BeforeStart(t *testing.T) {
	c, err := New(Config{}, component.Dependencies{})
	require.NoError(t, err)

	mux := http.NewServeMux()
	c.RegisterHTTPHandlers("", mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/individual?uri="+url.QueryEscape(adaURI), nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{302, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusClass(tt.status))
	}
}

func TestHandleIndividual_LinkedData(t *testing.T) {
	cfg := Config{
		ViewerLevel: "public",
		Visibility: []config.VisibilityRuleConfig{
			{Pattern: "http://vivoweb.org/ontology/core#email", MinLevel: "self"},
		},
	}
	_, srv := newTestServer(t, cfg)

	resp := get(t, srv.URL+"/individual?format=ttl&uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/turtle", resp.Header.Get("Content-Type"))

	var body bytes.Buffer
	_, err := body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "a foaf:Person")
	assert.Contains(t, body.String(), `foaf:firstName "Ada"`)
	assert.NotContains(t, body.String(), "ada@example.org")

	resp = get(t, srv.URL+"/individual?format=rdfxml&uri="+url.QueryEscape(adaURI), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv.URL+"/individual?format=jsonld&uri="+url.QueryEscape(adaURI), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/ld+json", resp.Header.Get("Content-Type"))
}
