package api

import (
	"context"
	"encoding/json"
	"errors"
	"formgate/internal/models"
	"formgate/internal/ratelimit"
	"formgate/internal/submission"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSubmissionService implements SubmissionService for testing
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, form *submission.Form, key string, body io.Reader) submission.Outcome {
	args := m.Called(ctx, form, key, body)
	return args.Get(0).(submission.Outcome)
}

func (m *MockSubmissionService) NotifierEnabled() bool {
	return m.Called().Bool(0)
}

type recordedOutcome struct {
	form, outcome string
}

type fakeRecorder struct {
	samples []recordedOutcome
}

func (f *fakeRecorder) Record(_ context.Context, form, outcome string, _ time.Duration) {
	f.samples = append(f.samples, recordedOutcome{form, outcome})
}

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

var (
	testContact   = submission.NewContactForm(ratelimit.ContactPolicy)
	testSubscribe = submission.NewSubscribeForm(ratelimit.SubscribePolicy)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandlers(service SubmissionService, opts ...HandlerOption) *Handlers {
	opts = append([]HandlerOption{WithLogger(discardLogger())}, opts...)
	return NewHandlers(service, testContact, testSubscribe, opts...)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNewHandlers(t *testing.T) {
	service := &MockSubmissionService{}
	handlers := NewHandlers(service, testContact, testSubscribe)

	assert.NotNil(t, handlers)
	assert.Equal(t, service, handlers.service)
	assert.Equal(t, int64(64<<10), handlers.maxBodyBytes)
	assert.Nil(t, handlers.metrics)
	assert.NotNil(t, handlers.logger)

	handlers = NewHandlers(service, testContact, testSubscribe, WithMaxBodyBytes(0))
	assert.Equal(t, int64(64<<10), handlers.maxBodyBytes, "non-positive cap keeps the default")
}

func TestHandlers_ContactSuccess(t *testing.T) {
	service := &MockSubmissionService{}
	service.On("Submit", mock.Anything, testContact, "203.0.113.5", mock.Anything).
		Return(submission.Outcome{Kind: submission.OK, Remaining: 3})

	recorder := &fakeRecorder{}
	handlers := newTestHandlers(service, WithOutcomeRecorder(recorder))

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	w := httptest.NewRecorder()

	handlers.Contact(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("Retry-After"))

	var resp models.SubmissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, testContact.Messages.Success, resp.Message)

	assert.Equal(t, []recordedOutcome{{"contact", "ok"}}, recorder.samples)
	service.AssertExpectations(t)
}

func TestHandlers_SubscribeUsesSubscribeForm(t *testing.T) {
	service := &MockSubmissionService{}
	service.On("Submit", mock.Anything, testSubscribe, ratelimit.UnknownClient, mock.Anything).
		Return(submission.Outcome{Kind: submission.OK, Remaining: 9})

	handlers := newTestHandlers(service)

	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	handlers.Subscribe(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "Subscribed successfully!")
	service.AssertExpectations(t)
}

func TestHandlers_OutcomeMapping(t *testing.T) {
	tests := []struct {
		name       string
		form       *submission.Form
		outcome    submission.Outcome
		wantStatus int
		wantError  string
		retryAfter string
	}{
		{
			name:       "rate limited",
			form:       testContact,
			outcome:    submission.Outcome{Kind: submission.RateLimited, RetryAfter: 17 * time.Second, Err: submission.ErrRateLimited},
			wantStatus: http.StatusTooManyRequests,
			wantError:  "Too many requests. Please try again later.",
			retryAfter: "60",
		},
		{
			name:       "contact invalid input",
			form:       testContact,
			outcome:    submission.Outcome{Kind: submission.InvalidInput, Err: submission.ErrMalformedBody},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid input. Please check your form and try again.",
		},
		{
			name:       "subscribe invalid input",
			form:       testSubscribe,
			outcome:    submission.Outcome{Kind: submission.InvalidInput, Err: submission.ErrMalformedBody},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid email address. Please try again.",
		},
		{
			name:       "contact server fault",
			form:       testContact,
			outcome:    submission.Outcome{Kind: submission.ServerFault, Err: errors.New("smtp: 535 bad password for forms@example.com")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to send message. Please try again.",
		},
		{
			name:       "subscribe server fault",
			form:       testSubscribe,
			outcome:    submission.Outcome{Kind: submission.ServerFault, Err: submission.ErrNotification},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to subscribe. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockSubmissionService{}
			service.On("Submit", mock.Anything, tt.form, mock.Anything, mock.Anything).Return(tt.outcome)
			handlers := newTestHandlers(service)

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
			w := httptest.NewRecorder()
			if tt.form == testContact {
				handlers.Contact(w, req)
			} else {
				handlers.Subscribe(w, req)
			}

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
			assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, tt.wantError, decodeError(t, w).Error)
			if tt.outcome.Err != nil {
				assert.NotContains(t, w.Body.String(), tt.outcome.Err.Error())
			}
		})
	}
}

func TestHandlers_BodyIsCapped(t *testing.T) {
	service := &MockSubmissionService{}
	var readErr error
	service.On("Submit", mock.Anything, testContact, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_, readErr = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(submission.Outcome{Kind: submission.InvalidInput})

	handlers := newTestHandlers(service, WithMaxBodyBytes(16))

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(strings.Repeat("x", 64)))
	w := httptest.NewRecorder()
	handlers.Contact(w, req)

	var maxErr *http.MaxBytesError
	require.ErrorAs(t, readErr, &maxErr)
	assert.Equal(t, int64(16), maxErr.Limit)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_HealthCheck(t *testing.T) {
	tests := []struct {
		name            string
		notifierEnabled bool
		limiter         KeyCounter
		wantLimiter     string
		wantNotifier    string
	}{
		{
			name:            "notifier enabled with limiter stats",
			notifierEnabled: true,
			limiter:         fixedCounter(3),
			wantLimiter:     "3 tracked clients",
			wantNotifier:    "enabled",
		},
		{
			name:            "notifier disabled without limiter stats",
			notifierEnabled: false,
			wantLimiter:     "operational",
			wantNotifier:    "disabled: no credential configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockSubmissionService{}
			service.On("NotifierEnabled").Return(tt.notifierEnabled)

			opts := []HandlerOption{}
			if tt.limiter != nil {
				opts = append(opts, WithLimiterStats(tt.limiter))
			}
			handlers := newTestHandlers(service, opts...)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handlers.HealthCheck(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var resp models.HealthCheckResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, models.StatusHealthy, resp.Status)
			assert.NotEmpty(t, resp.Version)
			assert.NotEmpty(t, resp.Uptime)
			assert.Equal(t, tt.wantLimiter, resp.Components["rate_limiter"].Message)
			assert.Equal(t, tt.wantNotifier, resp.Components["notifier"].Message)
			assert.Equal(t, models.StatusHealthy, resp.Components["notifier"].Status)
		})
	}
}
