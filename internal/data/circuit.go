package data

import (
	"sync"
	"time"

	"options-analyzer/internal/errors"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker trips after consecutive provider failures so a dead market
// source is skipped, together with its retry backoff, until the cooldown
// elapses and a probe call succeeds.
type breaker struct {
	failureThreshold int
	cooldown         time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

func newBreaker(failureThreshold int, cooldown time.Duration) *breaker {
	return &breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// allow reports whether a provider call should be attempted. In the open
// state one probe call per cooldown window is let through.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.lastFailure) < b.cooldown {
			return false
		}
		b.state = breakerHalfOpen
	}
	return true
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.lastFailure = time.Now()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		return
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = breakerOpen
	}
}

// fetchThrough runs fn behind the breaker. When the breaker rejects the
// call the provider is reported as unavailable without any I/O.
func fetchThrough[T any](b *breaker, fn func() (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, errors.Wrap(errors.ErrDataUnavailable, "provider circuit open")
	}
	result, err := fn()
	b.record(err)
	if err != nil {
		return zero, err
	}
	return result, nil
}
