// Package notify delivers form notifications to a human recipient. The
// submission pipeline only depends on the Notifier interface; the concrete
// transports are the Resend HTTP API and plain SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"formgate/internal/models"
)

// Notifier sends one HTML message.
type Notifier interface {
	// Send delivers msg.HTML to msg.To.
	Send(ctx context.Context, msg Message) error

	// Enabled reports whether a credential is configured. A disabled
	// notifier is a valid operating mode; callers skip Send silently.
	Enabled() bool
}

// Message is a notification built by the submission pipeline.
type Message struct {
	FromName string
	To       string
	Subject  string
	HTML     string
}

// ErrTransport wraps every delivery failure.
var ErrTransport = errors.New("notification transport error")

func transportError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, provider, err)
}

// New builds the notifier selected by cfg. Without a credential the returned
// notifier reports Enabled() == false. A positive MaxPerSecond wraps the transport in a
// Throttled notifier.
func New(cfg models.NotifierConfig) (Notifier, error) {
	var n Notifier
	switch cfg.Provider {
	case models.NotifierResend, "":
		n = NewResend(cfg)
	case models.NotifierSMTP:
		n = NewSMTP(cfg)
	default:
		return nil, fmt.Errorf("unsupported notifier provider: %s", cfg.Provider)
	}

	if cfg.MaxPerSecond > 0 && n.Enabled() {
		n = NewThrottled(n, cfg.MaxPerSecond, cfg.Burst)
	}
	return n, nil
}

func formatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
