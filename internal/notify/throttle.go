package notify

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled paces sends to a downstream relay with a token bucket. Send
// blocks until a token is available or ctx is done.
type Throttled struct {
	inner   Notifier
	limiter *rate.Limiter
}

// NewThrottled wraps inner so at most perSecond messages are sent per second
// with the given burst. A burst below 1 is raised to 1.
func NewThrottled(inner Notifier, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) Enabled() bool {
	return t.inner.Enabled()
}

func (t *Throttled) Send(ctx context.Context, msg Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return transportError("throttle", err)
	}
	return t.inner.Send(ctx, msg)
}
