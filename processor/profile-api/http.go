package profileapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semprofile/export"
	"github.com/c360studio/semprofile/qrcode"
	"github.com/c360studio/semprofile/storage"
	"github.com/c360studio/semprofile/templatemodel"
	"github.com/c360studio/semprofile/urlbuilder"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Endpoint labels used in logs and metrics.
const (
	endpointIndividual = "individual"
	endpointQRCode     = "qrcode"
	endpointQRAbout    = "qrcode_about"
)

// RegisterHTTPHandlers registers HTTP handlers for the profile-api component.
// The prefix may or may not include trailing slash.
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	// Ensure prefix has trailing slash
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	mux.HandleFunc(prefix+strings.TrimPrefix(urlbuilder.RouteIndividual.Path(), "/"), c.instrument(endpointIndividual, c.handleIndividual))
	mux.HandleFunc(prefix+strings.TrimPrefix(urlbuilder.RouteQRCode.Path(), "/"), c.instrument(endpointQRCode, c.handleQRCode))
	mux.HandleFunc(prefix+strings.TrimPrefix(urlbuilder.RouteQRCodeAbout.Path(), "/"), c.instrument(endpointQRAbout, c.handleQRCodeAbout))
}

// AboutQRCodes describes the QR export feature.
type AboutQRCodes struct {
	Description string   `json:"description"`
	Format      string   `json:"format"`
	Fields      []string `json:"fields"`
	ExportURL   string   `json:"export_url"`
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns a request ID, then records the outcome.
func (c *Component) instrument(endpoint string, h func(http.ResponseWriter, *http.Request, *slog.Logger)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		logger := c.logger.With("request_id", requestID, "endpoint", endpoint)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, logger)

		c.requests.Add(1)
		if rec.status >= http.StatusInternalServerError {
			c.failures.Add(1)
		}
		c.lastActivity.Store(time.Now().UnixNano())
		c.metrics.recordRequest(endpoint, rec.status, time.Since(start))

		logger.Debug("Request handled",
			"method", r.Method,
			"status", rec.status,
			"duration", time.Since(start))
	}
}

// handleIndividual handles GET /individual?uri={uri}[&format=turtle|ntriples|jsonld]
// Returns the template data of one individual as JSON, or its statements as
// linked data when a format is given.
func (c *Component) handleIndividual(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ind, ok := c.loadIndividual(w, r, logger, endpointIndividual)
	if !ok {
		return
	}

	if f := r.URL.Query().Get("format"); f != "" && f != "json" {
		format, err := export.ParseFormat(f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.writeLinkedData(w, r, logger, ind, format)
		return
	}

	snap, err := ind.Snapshot(r.Context())
	if err != nil {
		c.metrics.recordLookupError(endpointIndividual)
		logger.Error("Failed to render individual", "uri", ind.URI(), "error", err)
		http.Error(w, "Failed to render individual", http.StatusInternalServerError)
		return
	}

	c.writeJSON(w, logger, snap)
}

func (c *Component) writeLinkedData(w http.ResponseWriter, r *http.Request, logger *slog.Logger, ind *templatemodel.Individual, format export.Format) {
	doc, err := ind.LinkedData(r.Context())
	if err != nil {
		c.metrics.recordLookupError(endpointIndividual)
		logger.Error("Failed to export individual", "uri", ind.URI(), "format", format, "error", err)
		http.Error(w, "Failed to export individual", http.StatusInternalServerError)
		return
	}

	info, _ := export.GetFormatInfo(format)
	w.Header().Set("Content-Type", info.MIMEType)
	if err := export.Write(w, format, doc); err != nil {
		logger.Warn("Failed to write linked data", "error", err)
	}
}

// handleQRCode handles GET /qrcode?uri={uri}[&format=vcard]
// Returns the individual's contact card as a QR PNG, or the raw vCard.
func (c *Component) handleQRCode(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ind, ok := c.loadIndividual(w, r, logger, endpointQRCode)
	if !ok {
		return
	}

	data, err := ind.QRData(r.Context())
	if err != nil {
		c.metrics.recordLookupError(endpointQRCode)
		logger.Error("Failed to get QR data", "uri", ind.URI(), "error", err)
		http.Error(w, "Failed to retrieve QR data", http.StatusInternalServerError)
		return
	}

	card := qrcode.VCard(data)
	filename := qrcode.Filename(qrcode.FullName(data))

	if r.URL.Query().Get("format") == "vcard" {
		w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.TrimSuffix(filename, ".png")+".vcf"))
		_, _ = w.Write([]byte(card))
		return
	}

	png, err := c.qr.PNG(card)
	if err != nil {
		logger.Error("Failed to encode QR code", "uri", ind.URI(), "error", err)
		http.Error(w, "Failed to encode QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	_, _ = w.Write(png)
}

// handleQRCodeAbout handles GET /qrcode/about
func (c *Component) handleQRCodeAbout(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	builder := urlbuilder.NewBuilder(c.config.ContextPath, c.config.DefaultNamespace)
	c.writeJSON(w, logger, AboutQRCodes{
		Description: "Profile pages offer a QR code holding the person's contact card. " +
			"Scanning it adds the contact to an address book; fields the profile does not publish are left out.",
		Format: "vCard 3.0",
		Fields: []string{
			templatemodel.QRFirstName,
			templatemodel.QRLastName,
			templatemodel.QRPreferredTitle,
			templatemodel.QRPhoneNumber,
			templatemodel.QREmail,
			templatemodel.QRExternalURL,
		},
		ExportURL: builder.RouteURL(urlbuilder.RouteQRCode, urlbuilder.ParamMap{}) + "?uri={uri}",
	})
}

// loadIndividual resolves the uri parameter and writes the error response
// itself when that fails.
func (c *Component) loadIndividual(w http.ResponseWriter, r *http.Request, logger *slog.Logger, endpoint string) (*templatemodel.Individual, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	uri := strings.TrimSpace(r.URL.Query().Get("uri"))
	if uri == "" {
		http.Error(w, "uri parameter required", http.StatusBadRequest)
		return nil, false
	}

	ind, err := c.Individual(r, uri)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotStarted):
			http.Error(w, "Service not started", http.StatusServiceUnavailable)
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "Individual not found", http.StatusNotFound)
		default:
			c.metrics.recordLookupError(endpoint)
			logger.Error("Failed to load individual", "uri", uri, "error", err)
			http.Error(w, "Failed to load individual", http.StatusInternalServerError)
		}
		return nil, false
	}
	return ind, true
}

func (c *Component) writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
