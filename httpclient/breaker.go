package httpclient

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// NewRedisStore returns a breaker state store on an existing Redis client.
// Clients that share the store and the service name share one breaker, so a
// downstream outage seen by one process opens the circuit for all of them.
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	client := httpclient.New(
//	    httpclient.WithServiceName("payments"),
//	    httpclient.WithCircuitBreaker(httpclient.DistributedBreakerConfig(httpclient.NewRedisStore(rdb))),
//	)
func NewRedisStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// BreakerClassifier reports whether a round trip counts as a failure for the breaker.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig configures the optional circuit breaker of a Client.
//
// While open, round trips fail without touching the network. After Timeout
// the breaker lets MaxRequests probes through (half-open) and closes again
// when they succeed.
//
// A rejected request fails with a transport *Error whose Reason is
// "circuit_open"; inside FetchWithRetries it counts as a failed attempt.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is half-open.
	// If 0, the circuit breaker allows 1 request.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts
	// are cleared. If 0, counts are never cleared while closed.
	Interval time.Duration

	// Timeout is the period of the open state, after which the breaker
	// becomes half-open. gobreaker defaults this to 60s if 0.
	Timeout time.Duration

	// FailureThreshold is the minimum number of requests before the
	// breaker may trip.
	FailureThreshold uint32

	// FailureRatio trips the breaker when failures/requests reaches it.
	FailureRatio float64

	// ConsecutiveFailures trips the breaker after this many failures in a row.
	// If 0, this rule is disabled.
	ConsecutiveFailures uint32

	// Store is the shared data store for distributed circuit breaking.
	// If nil, the circuit breaker is local (in-memory).
	Store gobreaker.SharedDataStore

	// Classifier determines which outcomes count as failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// OnStateChange is invoked when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns a configuration for a local circuit breaker.
//
//   - Interval: 10s
//   - Timeout: 10s
//   - FailureThreshold: 20
//   - FailureRatio: 0.5
//   - ConsecutiveFailures: 5
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             10 * time.Second,
		FailureThreshold:    20,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// DistributedBreakerConfig returns DefaultBreakerConfig backed by store, so
// every process sharing the store shares one breaker state.
func DistributedBreakerConfig(store gobreaker.SharedDataStore) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Store = store
	return cfg
}

// DefaultBreakerClassifier counts transport failures and 5xx answers as failures.
// Other statuses are successes: the breaker guards reachability, not semantics.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode >= 500
}

// readyToTrip applies the trip rules once FailureThreshold requests were seen:
// ConsecutiveFailures first, then FailureRatio.
func (bc BreakerConfig) readyToTrip(c gobreaker.Counts) bool {
	switch {
	case c.Requests < bc.FailureThreshold:
		return false
	case bc.ConsecutiveFailures > 0 && c.ConsecutiveFailures >= bc.ConsecutiveFailures:
		return true
	case bc.FailureRatio > 0 && c.Requests > 0:
		return float64(c.TotalFailures)/float64(c.Requests) >= bc.FailureRatio
	default:
		return false
	}
}
