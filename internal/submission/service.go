package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"formgate/internal/logger"
	"formgate/internal/models"
	"formgate/internal/notify"
	"formgate/internal/ratelimit"
	"formgate/internal/validation"
	"io"
	"log/slog"
	"time"
)

// Service handles form submissions for any number of forms sharing one
// limiter and one notifier.
type Service struct {
	limiter   ratelimit.Limiter
	notifier  notify.Notifier
	recipient string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the notifier and the address that receives every
// notification. Without it, submissions are accepted and nothing is sent.
func WithNotifier(n notify.Notifier, recipient string) Option {
	return func(s *Service) {
		s.notifier = n
		if recipient != "" {
			s.recipient = recipient
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a submission service admitting requests through limiter.
func NewService(limiter ratelimit.Limiter, opts ...Option) *Service {
	s := &Service{
		limiter:   limiter,
		recipient: models.DefaultRecipient,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifierEnabled reports whether accepted submissions produce a notification.
func (s *Service) NotifierEnabled() bool {
	return s.notifier != nil && s.notifier.Enabled()
}

// Submit runs one submission of form from the client identified by key. body
// must already be size-capped by the caller.
//
// Steps, each of which can end the submission: admission under form.Policy,
// JSON parsing, schema validation, and (if a notifier is enabled) an awaited
// notification. A rejected admission never reads body.
func (s *Service) Submit(ctx context.Context, form *Form, key string, body io.Reader) (outcome Outcome) {
	log := logger.FromContext(ctx, s.logger).With(slog.String("form", form.Name))

	// Budgets are per form so contact and subscribe traffic never share a log.
	decision := s.limiter.Admit(form.Name+":"+key, form.Policy, s.now())
	if !decision.Admitted {
		log.Warn("Submission rate limited",
			"client", key,
			"limit", decision.Limit,
			"retry_after", decision.RetryAfter)
		return Outcome{
			Kind:       RateLimited,
			RetryAfter: decision.RetryAfter,
			Err:        fmt.Errorf("%w: %s", ErrRateLimited, form.Name),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Submission panicked", "panic", r)
			outcome = Outcome{
				Kind:      ServerFault,
				Remaining: decision.Remaining,
				Err:       fmt.Errorf("%w: %v", ErrPanic, r),
			}
		}
	}()

	raw, err := decodeBody(body)
	if err != nil {
		log.Warn("Submission rejected", "reason", "malformed body", "error", err)
		return Outcome{Kind: InvalidInput, Remaining: decision.Remaining, Err: err}
	}

	record, err := validation.Validate(form.Schema, raw)
	if err != nil {
		var fe validation.FieldErrors
		if errors.As(err, &fe) {
			log.Warn("Submission rejected", "reason", "validation", "fields", fe.Fields())
		}
		return Outcome{Kind: InvalidInput, Remaining: decision.Remaining, Err: err}
	}

	if err := s.notify(ctx, form, record); err != nil {
		log.Error("Failed to send notification", "error", err)
		return Outcome{Kind: ServerFault, Remaining: decision.Remaining, Err: err}
	}

	log.Info("Submission accepted",
		"email", record.Field(validation.FieldEmail),
		"remaining", decision.Remaining,
		"notified", s.NotifierEnabled())

	return Outcome{Kind: OK, Remaining: decision.Remaining, Record: record}
}

func (s *Service) notify(ctx context.Context, form *Form, record validation.Record) error {
	if !s.NotifierEnabled() {
		return nil
	}

	subject, html, err := form.Render(record, s.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}

	err = s.notifier.Send(ctx, notify.Message{
		FromName: form.Sender,
		To:       s.recipient,
		Subject:  subject,
		HTML:     html,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}
	return nil
}

// decodeBody parses a single JSON object. Empty bodies, other JSON values,
// trailing data and reads past the caller's size cap are all malformed.
func decodeBody(body io.Reader) (map[string]any, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}

	dec := json.NewDecoder(body)
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", ErrMalformedBody)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedBody)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrMalformedBody)
	}
	return raw, nil
}
