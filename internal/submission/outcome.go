package submission

import (
	"errors"
	"formgate/internal/validation"
	"net/http"
	"time"
)

// OutcomeKind classifies the result of one submission.
//
// Kinds are ordered by precedence: a request that is both over its budget and
// malformed is RateLimited, and a request that is invalid never reaches the
// notifier, so it can never be a ServerFault.
type OutcomeKind int

const (
	OK OutcomeKind = iota
	RateLimited
	InvalidInput
	ServerFault
)

func (k OutcomeKind) String() string {
	switch k {
	case OK:
		return "ok"
	case RateLimited:
		return "rate_limited"
	case InvalidInput:
		return "invalid_input"
	case ServerFault:
		return "server_fault"
	default:
		return "unknown"
	}
}

// StatusCode maps the kind to the HTTP status sent to the client.
func (k OutcomeKind) StatusCode() int {
	switch k {
	case OK:
		return http.StatusOK
	case RateLimited:
		return http.StatusTooManyRequests
	case InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Sentinel causes carried in Outcome.Err.
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrMalformedBody = errors.New("malformed request body")
	ErrNotification  = errors.New("notification failed")
	ErrPanic         = errors.New("panic during submission")
)

// Outcome is the tagged result of Service.Submit.
//
// Err is operator detail for logs and must never be written to a response.
// Record is set only when Kind is OK.
type Outcome struct {
	Kind       OutcomeKind
	Remaining  int
	RetryAfter time.Duration
	Record     validation.Record
	Err        error
}

// FieldErrors returns the validation errors behind an InvalidInput outcome,
// or nil when the input failed before validation.
func (o Outcome) FieldErrors() validation.FieldErrors {
	var fe validation.FieldErrors
	if errors.As(o.Err, &fe) {
		return fe
	}
	return nil
}
