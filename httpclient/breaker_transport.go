package httpclient

import (
	"context"
	"errors"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"
)

// circuitBreaker hides the difference between a process-local and a
// Redis-backed breaker.
type circuitBreaker interface {
	execute(func() (*http.Response, error)) (*http.Response, error)
	state() gobreaker.State
}

type localBreaker struct {
	cb *gobreaker.CircuitBreaker[*http.Response]
}

func (b localBreaker) execute(fn func() (*http.Response, error)) (*http.Response, error) {
	return b.cb.Execute(fn)
}

func (b localBreaker) state() gobreaker.State { return b.cb.State() }

// distributedBreaker reads its state from the shared store, so a trip
// recorded by another process is visible here.
type distributedBreaker struct {
	cb *gobreaker.DistributedCircuitBreaker[*http.Response]
}

func (b distributedBreaker) execute(fn func() (*http.Response, error)) (*http.Response, error) {
	return b.cb.Execute(fn)
}

func (b distributedBreaker) state() gobreaker.State {
	st, err := b.cb.State()
	if err != nil {
		return gobreaker.StateClosed
	}
	return st
}

// errCountedFailure makes the breaker count a response, typically a 5xx,
// as a failure. The response itself is still handed back to the caller.
var errCountedFailure = errors.New("response counted as breaker failure")

// circuitBreakerTransport runs every round trip through a breaker.
type circuitBreakerTransport struct {
	breaker    circuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	cfg        *internalConfig
}

// RoundTrip implements http.RoundTripper. Open-state rejections return
// gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests unchanged; the
// classifier turns them into the "circuit_open" reason.
func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	state := t.breaker.state().String()

	resp, err := t.breaker.execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose // returned to the caller
		switch {
		case !t.classifier(resp, err):
			return resp, nil
		case err != nil:
			return nil, err
		default:
			return resp, errCountedFailure
		}
	})

	switch {
	case err == nil:
		t.record(ctx, state, "success")
		return resp, nil
	case errors.Is(err, errCountedFailure):
		t.record(ctx, state, "failure")
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		t.record(ctx, state, "rejected")
		return nil, err
	default:
		t.record(ctx, state, "failure")
		return nil, err
	}
}

func (t *circuitBreakerTransport) record(ctx context.Context, state, outcome string) {
	t.cfg.Metrics.recordBreakerRequest(ctx, t.cfg.baseAttributes(), state, outcome)
}

// newCircuitBreakerTransport wraps next when a BreakerConfig is set.
// The breaker is named after the service, which is also its key in a
// shared store: clients with the same service name share one breaker.
func newCircuitBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.BreakerConfig == nil {
		return next
	}
	bc := *cfg.BreakerConfig

	name := cfg.ServiceName
	if name == "" {
		name = "weblib"
	}

	classifier := bc.Classifier
	if classifier == nil {
		classifier = DefaultBreakerClassifier
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: bc.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if cfg.Debug {
				cfg.Logger.Debug().
					Str("breaker", name).
					Stringer("from", from).
					Stringer("to", to).
					Msg("circuit breaker state changed")
			}
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	t := &circuitBreakerTransport{next: next, classifier: classifier, cfg: cfg}

	if bc.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[*http.Response](bc.Store, st)
		if err == nil {
			t.breaker = distributedBreaker{cb: dcb}
			return t
		}
		cfg.Logger.Warn().Err(err).Str("breaker", name).
			Msg("distributed circuit breaker unavailable, using local breaker")
	}

	t.breaker = localBreaker{cb: gobreaker.NewCircuitBreaker[*http.Response](st)}
	return t
}
