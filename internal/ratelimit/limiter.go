// Package ratelimit provides per-client admission control for the public form
// endpoints using a sliding-window log. Each client key keeps the timestamps
// of its admitted requests; a request is admitted while fewer than
// Policy.MaxRequests timestamps fall inside the trailing Policy.Window.
package ratelimit

import "time"

// Limiter defines the admission contract. Implementations must be safe for
// concurrent use and must serialize decisions for the same key.
type Limiter interface {
	// Admit decides whether a request identified by key is admitted under
	// policy at the instant now. A rejected request leaves the key's state
	// unchanged.
	Admit(key string, policy Policy, now time.Time) Decision
}

// Policy is the admission budget of one endpoint.
type Policy struct {
	Window      time.Duration // Length of the trailing window
	MaxRequests int           // Admissions allowed inside one window
}

// Decision is the result of one admission check.
type Decision struct {
	Admitted   bool
	Limit      int           // Policy.MaxRequests
	Remaining  int           // Admissions left in the current window, never negative
	RetryAfter time.Duration // Until the oldest entry leaves the window (meaningful only when rejected)
}

// Default policies for the two public forms.
var (
	ContactPolicy   = Policy{Window: time.Minute, MaxRequests: 5}
	SubscribePolicy = Policy{Window: time.Minute, MaxRequests: 10}
)
