package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces collection jobs so consecutive places are not opened
// back to back.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Feedback is implemented by limiters that adapt to job outcomes.
type Feedback interface {
	RecordSuccess()
	RecordError()
}

// SimpleRateLimiter spaces calls by a random delay between two bounds.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
	rnd        *rand.Rand
}

// NewSimpleRateLimiter creates a limiter with jitter between minDelay and maxDelay.
func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   true,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until a jittered delay has passed since the previous call. The
// first call returns immediately.
func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastAction.IsZero() {
		elapsed := time.Since(r.lastAction)
		delay := r.calculateDelay()

		if elapsed < delay {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay - elapsed):
			}
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	if !r.jitter || r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(r.rnd.Int63n(int64(delta)))
}

// AdaptiveRateLimiter widens the delay after repeated failed jobs and
// narrows it again after a run of successful ones.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	floor         time.Duration
	ceiling       time.Duration
}

// NewAdaptiveRateLimiter creates a limiter that never recovers below the given delays.
func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: NewSimpleRateLimiter(minDelay, maxDelay),
		maxErrorCount:     3,
		backoffFactor:     1.5,
		floor:             minDelay,
		ceiling:           maxDelay,
	}
}

// RecordSuccess shrinks both delays toward their initial values after a run of successes.
func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < a.floor {
			newMin = a.floor
		}
		newMax := time.Duration(float64(a.maxDelay) * 0.9)
		if newMax < a.ceiling {
			newMax = a.ceiling
		}
		if newMax < newMin {
			newMax = newMin
		}
		a.minDelay = newMin
		a.maxDelay = newMax
		a.successCount = 0
	}
}

// RecordError widens both delays after repeated failures.
func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)

		if newMin > 2*time.Minute {
			newMin = 2 * time.Minute
		}
		if newMax > 5*time.Minute {
			newMax = 5 * time.Minute
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorCount = 0
	}
}

// HourlyLimiter caps the number of jobs per hour with a token bucket.
type HourlyLimiter struct {
	limiter *rate.Limiter
}

// NewHourlyLimiter allows perHour jobs per hour. Zero means unlimited.
func NewHourlyLimiter(perHour, burst int) *HourlyLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perHour > 0 {
		limit = rate.Every(time.Hour / time.Duration(perHour))
	}
	return &HourlyLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or ctx is done.
func (h *HourlyLimiter) Wait(ctx context.Context) error {
	return h.limiter.Wait(ctx)
}

// Chain waits on every limiter in turn and forwards feedback to those that
// accept it.
type Chain []RateLimiter

func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) RecordSuccess() {
	for _, l := range c {
		if f, ok := l.(Feedback); ok {
			f.RecordSuccess()
		}
	}
}

func (c Chain) RecordError() {
	for _, l := range c {
		if f, ok := l.(Feedback); ok {
			f.RecordError()
		}
	}
}
