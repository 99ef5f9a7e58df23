package httpclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds a FetchWithRetries sequence.
//
// A policy is a plain value constructed per call; nothing is shared between
// sequences.
//
// Example usage:
//
//	// Up to 3 attempts, each limited to 1s, no pause between attempts.
//	resp, err := client.FetchWithRetries(ctx, url, httpclient.RetryPolicy{
//	    MaxAttempts:       3,
//	    PerAttemptTimeout: time.Second,
//	})
//
//	// Same budget with exponential pauses between attempts.
//	policy := httpclient.DefaultRetryPolicy()
//	policy.BackOff = backoff.NewExponentialBackOff()
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	// 0 and 1 both mean exactly one attempt.
	MaxAttempts uint

	// PerAttemptTimeout bounds every attempt independently, reading the
	// body included. It is not cumulative across attempts.
	// 0 means only the client Config.Timeout applies.
	PerAttemptTimeout time.Duration

	// BackOff computes the pause before the next attempt.
	// nil means retries are immediate.
	BackOff backoff.BackOff
}

// Default values for RetryPolicy.
const (
	// DefaultMaxAttempts is the default attempt budget.
	DefaultMaxAttempts = 3

	// DefaultPerAttemptTimeout is the default per-attempt bound.
	DefaultPerAttemptTimeout = 5 * time.Second
)

// DefaultRetryPolicy returns 3 immediate attempts of at most 5s each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		PerAttemptTimeout: DefaultPerAttemptTimeout,
	}
}

// attempts returns the effective attempt budget.
func (p RetryPolicy) attempts() uint {
	if p.MaxAttempts == 0 {
		return 1
	}
	return p.MaxAttempts
}

// backOff returns the pause policy. backoff.Retry resets it before the first attempt.
func (p RetryPolicy) backOff() backoff.BackOff {
	if p.BackOff == nil {
		return &backoff.ZeroBackOff{}
	}
	return p.BackOff
}
