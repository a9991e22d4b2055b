package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Class identifies which upstream quota a request draws from. GitHub meters
// code search, the core REST API and GraphQL separately.
type Class int

const (
	Search Class = iota
	Core
	GraphQL
)

// State mirrors the quota counters reported by the last response seen for a
// class.
type State struct {
	Remaining int
	ResetAt   time.Time
	Known     bool
}

// Limiter combines a token bucket per endpoint class with the quota state
// reported by upstream responses. All workers of a pipeline share one
// Limiter, so the aggregate request rate stays under the ceiling no matter
// how many goroutines fetch concurrently.
type Limiter struct {
	buckets map[Class]*rate.Limiter

	mu     sync.Mutex
	states map[Class]State
}

// New builds a Limiter whose buckets release one request per given delay.
// GraphQL shares the core cadence.
func New(searchDelay, coreDelay time.Duration) *Limiter {
	return &Limiter{
		buckets: map[Class]*rate.Limiter{
			Search:  rate.NewLimiter(rate.Every(searchDelay), 1),
			Core:    rate.NewLimiter(rate.Every(coreDelay), 1),
			GraphQL: rate.NewLimiter(rate.Every(coreDelay), 1),
		},
		states: make(map[Class]State),
	}
}

// Wait blocks until the class bucket releases a token or ctx expires.
func (l *Limiter) Wait(ctx context.Context, class Class) error {
	return l.buckets[class].Wait(ctx)
}

// Exhausted reports whether the tracked quota for the class is spent, and if
// so how long until it resets.
func (l *Limiter) Exhausted(class Class) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.states[class]
	if !ok || !s.Known || s.Remaining > 0 {
		return 0, false
	}
	until := time.Until(s.ResetAt)
	if until <= 0 {
		return 0, false
	}
	return until, true
}

// Observe records the quota counters from a response's rate-limit headers.
func (l *Limiter) Observe(class Class, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.states[class] = State{
		Remaining: remaining,
		ResetAt:   resetAt,
		Known:     true,
	}
}

// StateFor returns a copy of the tracked state for the class.
func (l *Limiter) StateFor(class Class) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[class]
}
