// Package httpapi exposes registered schemas over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/i18n"
	"github.com/reoring/goshape/internal/metrics"
	"github.com/reoring/goshape/jsonschema"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Schemas is the lookup the service needs from a registry.
type Schemas interface {
	Get(name string) (*goshape.Validator, bool)
	Names() []string
}

// Options configures the router.
type Options struct {
	Schemas Schemas
	Decode  goshape.DecodeOpt
	Logger  zerolog.Logger
	// Metrics records validations and decode failures when set.
	Metrics *metrics.Collector
	// Gatherer backs the metrics endpoint; nil disables it.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// Handler serves the validation API.
type Handler struct {
	schemas Schemas
	decode  goshape.DecodeOpt
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewRouter builds the chi router for the service.
func NewRouter(opt Options) chi.Router {
	h := &Handler{
		schemas: opt.Schemas,
		decode:  opt.Decode,
		logger:  opt.Logger,
		metrics: opt.Metrics,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(NewLoggingMiddleware(opt.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/v1/schemas", h.list)
	r.Get("/v1/schemas/{name}/jsonschema", h.jsonSchema)
	r.Post("/v1/schemas/{name}/validate", h.validate)

	if opt.Gatherer != nil {
		path := opt.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(opt.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type schemaInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	names := h.schemas.Names()
	out := make([]schemaInfo, 0, len(names))
	for _, name := range names {
		v, ok := h.schemas.Get(name)
		if !ok {
			continue
		}
		out = append(out, schemaInfo{Name: name, Schema: v.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": out})
}

func (h *Handler) jsonSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := h.schemas.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown schema " + name})
		return
	}
	js, err := jsonschema.FromSchema(v.Schema())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(js)
}

type issueJSON struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	Offset  int64  `json:"offset"`
}

type errorResponse struct {
	Error  string      `json:"error"`
	Issues []issueJSON `json:"issues,omitempty"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := h.schemas.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown schema " + name})
		return
	}

	src := goshape.JSONReader(r.Body)
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "yaml") {
		src = goshape.YAMLReader(r.Body)
	}
	opt := h.decode
	opt.IssueSink = h.inputWarning(r, name, opt.IssueSink)
	value, err := goshape.Decode(r.Context(), src, opt)
	if err != nil {
		h.decodeFailed(w, r, name, err)
		return
	}

	start := time.Now()
	valid := v.IsValid(value)
	if h.metrics != nil {
		h.metrics.ObserveValidation(name, valid, time.Since(start))
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: valid})
}

// inputWarning logs and counts non-fatal decode issues, then forwards them to
// next when set.
func (h *Handler) inputWarning(r *http.Request, name string, next func(goshape.Issue)) func(goshape.Issue) {
	reqID := middleware.GetReqID(r.Context())
	return func(is goshape.Issue) {
		h.logger.Warn().
			Str("schema", name).
			Str("code", is.Code).
			Str("path", is.Path).
			Str("request_id", reqID).
			Msg(is.Message)
		if h.metrics != nil {
			h.metrics.ObserveDecodeWarning(is.Code)
		}
		if next != nil {
			next(is)
		}
	}
}

func (h *Handler) decodeFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	resp := errorResponse{Error: err.Error()}
	code := goshape.CodeParseError
	if iss, ok := goshape.AsIssues(err); ok {
		tr := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"))
		for _, it := range iss {
			resp.Issues = append(resp.Issues, issueJSON{
				Path:    it.Path,
				Code:    it.Code,
				Title:   tr.Message(it.Code, nil),
				Message: it.Message,
				Offset:  it.Offset,
			})
		}
		if len(iss) > 0 {
			code = iss[0].Code
		}
	}
	if h.metrics != nil {
		h.metrics.ObserveDecodeError(code)
	}
	h.logger.Debug().
		Str("schema", name).
		Str("code", code).
		Str("request_id", middleware.GetReqID(r.Context())).
		Err(err).
		Msg("rejected input")

	status := http.StatusBadRequest
	if goshape.HasCode(err, goshape.CodeTruncated) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RequestID propagates X-Request-ID, generating a UUID when the client sent
// none. The id is readable with middleware.GetReqID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewLoggingMiddleware creates a middleware logging one line per request.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks
			if r.URL.Path == "/healthz" {
				return
			}

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
