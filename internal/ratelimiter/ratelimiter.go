// Package ratelimiter wraps golang.org/x/time/rate with the token-bucket
// policy the relay applies to incoming connections: a sustained
// accepts-per-second rate with a configurable burst on top.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a thread-safe token bucket. Tokens refill at the sustained
// rate; the burst capacity bounds how far a spike can run ahead of it.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing perSecond sustained events with the given
// burst capacity. perSecond of 0 disables limiting entirely; a zero burst
// with a nonzero rate falls back to a burst equal to the rate.
func New(perSecond, burst uint) *RateLimiter {
	if perSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = perSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst)),
	}
}

// Allow consumes a token if one is available, without blocking.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently in the bucket. Useful for
// diagnostics only; the value is stale the moment it returns.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
