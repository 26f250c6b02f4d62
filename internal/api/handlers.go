package api

import (
	"context"
	"encoding/json"
	"fmt"
	"formgate/internal/logger"
	"formgate/internal/models"
	"formgate/internal/ratelimit"
	"formgate/internal/submission"
	"formgate/internal/version"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// retryAfterSeconds is sent with every 429 regardless of the policy window.
const retryAfterSeconds = "60"

// SubmissionService is the core the form handlers delegate to.
type SubmissionService interface {
	Submit(ctx context.Context, form *submission.Form, key string, body io.Reader) submission.Outcome
	NotifierEnabled() bool
}

// OutcomeRecorder receives one sample per handled submission.
type OutcomeRecorder interface {
	Record(ctx context.Context, form, outcome string, elapsed time.Duration)
}

// KeyCounter reports how many client keys the rate limiter tracks.
type KeyCounter interface {
	Len() int
}

// Handlers contains HTTP handlers for the form endpoints
type Handlers struct {
	service      SubmissionService
	contact      *submission.Form
	subscribe    *submission.Form
	maxBodyBytes int64
	limiter      KeyCounter
	metrics      OutcomeRecorder
	logger       *slog.Logger
	version      version.Info
	started      time.Time
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handlers)

// WithMaxBodyBytes caps request bodies. Larger bodies are invalid input.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithLimiterStats reports the limiter size in the health document.
func WithLimiterStats(k KeyCounter) HandlerOption {
	return func(h *Handlers) {
		h.limiter = k
	}
}

// WithOutcomeRecorder records submission outcomes, typically as metrics.
func WithOutcomeRecorder(r OutcomeRecorder) HandlerOption {
	return func(h *Handlers) {
		h.metrics = r
	}
}

// WithLogger sets the base logger for request logs.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handlers) {
		h.logger = l
	}
}

// NewHandlers creates a new handlers instance
func NewHandlers(service SubmissionService, contact, subscribe *submission.Form, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		service:      service,
		contact:      contact,
		subscribe:    subscribe,
		maxBodyBytes: models.NewDefaultConfig().Server.MaxBodyBytes,
		logger:       slog.Default(),
		version:      version.GetInfo(),
		started:      time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Contact handles contact form submissions
// POST /contact
func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.contact)
}

// Subscribe handles newsletter subscriptions
// POST /subscribe
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.subscribe)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, form *submission.Form) {
	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer body.Close()

	outcome := h.service.Submit(r.Context(), form, ratelimit.ClientKey(r), body)

	if h.metrics != nil {
		h.metrics.Record(r.Context(), form.Name, outcome.Kind.String(), time.Since(start))
	}

	status := outcome.Kind.StatusCode()
	message := form.Messages.For(outcome.Kind)

	switch outcome.Kind {
	case submission.OK:
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(outcome.Remaining))
		h.writeJSONResponse(w, r, status, models.NewSubmissionResponse(message))
	case submission.RateLimited:
		w.Header().Set("Retry-After", retryAfterSeconds)
		h.writeErrorResponse(w, r, status, message)
	default:
		h.writeErrorResponse(w, r, status, message)
	}
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version
	response.Uptime = time.Since(h.started).Truncate(time.Second).String()

	if h.limiter != nil {
		response.AddComponent("rate_limiter", models.StatusHealthy,
			fmt.Sprintf("%d tracked clients", h.limiter.Len()))
	} else {
		response.AddComponent("rate_limiter", models.StatusHealthy, "operational")
	}

	if h.service.NotifierEnabled() {
		response.AddComponent("notifier", models.StatusHealthy, "enabled")
	} else {
		response.AddComponent("notifier", models.StatusHealthy, "disabled: no credential configured")
	}

	h.writeJSONResponse(w, r, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	writeJSON(w, statusCode, data, logger.FromContext(r.Context(), h.logger))
}

// writeErrorResponse writes an error response carrying only message
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	h.writeJSONResponse(w, r, statusCode, models.NewErrorResponse(message))
}

func writeJSON(w http.ResponseWriter, statusCode int, data any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		if log == nil {
			log = slog.Default()
		}
		log.Error("Failed to encode JSON response", "error", err)
	}
}
