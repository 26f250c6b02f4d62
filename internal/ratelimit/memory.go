package ratelimit

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultSweepProbability is the chance that an admission check triggers a
// sweep of idle keys.
const DefaultSweepProbability = 0.01

// MemoryLimiter is a process-local sliding-window limiter. Each key maps to
// the ordered Unix-millisecond timestamps of its admitted requests.
//
// Idle keys are removed by an opportunistic sweep: with a small probability
// per Admit call a goroutine prunes every key against the window of the
// policy it was last admitted under and deletes the ones left empty. The sweep runs after the decision has been
// computed and never changes the decision it rides on.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*requestLog

	shouldSweep func() bool
	sweeps      sync.WaitGroup
}

// requestLog is the admission history of one key. window is the policy
// window in milliseconds, so a sweep prunes each key on its own terms.
type requestLog struct {
	timestamps []int64
	window     int64
}

// Option configures a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithSweepProbability sets the per-call chance of a sweep. Values <= 0
// disable the opportunistic sweep.
func WithSweepProbability(p float64) Option {
	return func(m *MemoryLimiter) {
		if p <= 0 {
			m.shouldSweep = func() bool { return false }
			return
		}
		m.shouldSweep = func() bool { return rand.Float64() < p }
	}
}

// WithSweepChance replaces the random sweep trigger.
func WithSweepChance(fn func() bool) Option {
	return func(m *MemoryLimiter) {
		m.shouldSweep = fn
	}
}

// NewMemoryLimiter creates an empty limiter.
func NewMemoryLimiter(opts ...Option) *MemoryLimiter {
	m := &MemoryLimiter{
		entries: make(map[string]*requestLog),
	}
	WithSweepProbability(DefaultSweepProbability)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Admit implements Limiter.
func (m *MemoryLimiter) Admit(key string, policy Policy, now time.Time) Decision {
	nowMs := now.UnixMilli()
	windowMs := policy.Window.Milliseconds()
	windowStart := nowMs - windowMs

	decision := Decision{Limit: policy.MaxRequests}

	m.mu.Lock()
	var kept []int64
	if entry, ok := m.entries[key]; ok {
		kept = prune(entry.timestamps, windowStart)
	}

	if len(kept) >= policy.MaxRequests {
		m.mu.Unlock()
		if len(kept) > 0 {
			decision.RetryAfter = time.Duration(kept[0]-windowStart) * time.Millisecond
		}
		m.maybeSweep(now)
		return decision
	}

	kept = append(kept, nowMs)
	m.entries[key] = &requestLog{timestamps: kept, window: windowMs}
	m.mu.Unlock()

	decision.Admitted = true
	decision.Remaining = policy.MaxRequests - len(kept)
	m.maybeSweep(now)
	return decision
}

// Sweep prunes every key against its own policy window ending at now and
// deletes keys with no remaining entries. It returns the number of deleted
// keys.
func (m *MemoryLimiter) Sweep(now time.Time) int {
	nowMs := now.UnixMilli()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		entry.timestamps = prune(entry.timestamps, nowMs-entry.window)
		if len(entry.timestamps) == 0 {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Wait blocks until every detached sweep has finished.
func (m *MemoryLimiter) Wait() {
	m.sweeps.Wait()
}

func (m *MemoryLimiter) maybeSweep(now time.Time) {
	if !m.shouldSweep() {
		return
	}
	m.sweeps.Add(1)
	go func() {
		defer m.sweeps.Done()
		m.Sweep(now)
	}()
}

// prune returns the entries newer than windowStart, preserving order. The
// input is returned unchanged when nothing expired.
func prune(timestamps []int64, windowStart int64) []int64 {
	expired := 0
	for _, ts := range timestamps {
		if ts <= windowStart {
			expired++
		}
	}
	if expired == 0 {
		return timestamps
	}
	kept := make([]int64, 0, len(timestamps)-expired+1)
	for _, ts := range timestamps {
		if ts > windowStart {
			kept = append(kept, ts)
		}
	}
	return kept
}
