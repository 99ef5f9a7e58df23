package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/weblib/httpclient"
)

// =============================================================================
// Config - HTTP Transport Configuration
// =============================================================================

// Config holds the HTTP transport configuration parameters.
// Use DefaultConfig() to get a properly initialized configuration,
// then modify specific fields as needed.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = 5 * time.Second
//
//	client := httpclient.New(
//	    httpclient.WithConfig(cfg),
//	)
type Config struct {
	// Timeout is the upper bound for one round trip including the body read.
	// The per-attempt timeout of a RetryPolicy applies on top of it.
	// A Timeout of zero means no timeout.
	//
	// Default: 30s
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections across all hosts.
	//
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections per host.
	//
	// Default: 10
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout is the maximum time to wait for a TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers after
	// the request is written. Zero means no separate limit.
	//
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// DialTimeout is the maximum time to establish a TCP connection.
	//
	// Default: 10s
	DialTimeout time.Duration

	// KeepAlive specifies the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	// DisableKeepAlives forces a new connection for each request.
	//
	// Default: false
	DisableKeepAlives bool
}

// DefaultConfig returns a balanced configuration suitable for most use cases.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 0,

		DialTimeout: 10 * time.Second,
		KeepAlive:   30 * time.Second,

		DisableKeepAlives: false,
	}
}

// LowLatencyConfig returns a configuration that fails fast.
//
// Key differences from DefaultConfig:
//   - 5s overall timeout
//   - 2s dial timeout and 3s header timeout
//
// Best for health checks and user-facing calls.
func LowLatencyConfig() Config {
	return Config{
		Timeout: 5 * time.Second,

		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 25,
		IdleConnTimeout:     60 * time.Second,

		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 3 * time.Second,

		DialTimeout: 2 * time.Second,
		KeepAlive:   15 * time.Second,
	}
}

// ConservativeConfig returns a resource-conscious configuration for
// one-shot callers such as CLIs and serverless functions.
//
// Keep-alives are disabled, so every call opens and closes its own connection.
func ConservativeConfig() Config {
	return Config{
		Timeout: 15 * time.Second,

		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout: 10 * time.Second,

		DialTimeout: 5 * time.Second,
		KeepAlive:   30 * time.Second,

		DisableKeepAlives: true,
	}
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds all configuration including HTTP transport and OTel settings.
type internalConfig struct {
	// HTTP transport configuration
	httpConfig Config

	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// Propagators injects trace context into outgoing headers.
	Propagators propagation.TextMapPropagator

	// ServiceName identifies the client in traces and metrics.
	ServiceName string

	// Logger receives debug output when Debug is set.
	Logger zerolog.Logger

	// Debug enables request/response logging.
	Debug bool

	// AuthCheck promotes 401/403 answers to basic-auth requests into auth errors.
	AuthCheck bool

	// DefaultHeaders are applied to all requests.
	DefaultHeaders http.Header

	// TLSConfig specifies the TLS configuration.
	TLSConfig *tls.Config

	// ProxyURL specifies a proxy URL for requests.
	ProxyURL *url.URL

	// ProxyFromEnvironment uses HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
	ProxyFromEnvironment bool

	// Transport replaces the built http.Transport, e.g. with a MockTransport.
	Transport http.RoundTripper

	// RateLimit enables client-level rate limiting when set.
	RateLimit *RateLimitConfig

	// BreakerConfig enables circuit breaking when set.
	BreakerConfig *BreakerConfig
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:     DefaultConfig(),
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Propagators: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		Logger:               zerolog.Nop(),
		DefaultHeaders:       make(http.Header),
		ProxyFromEnvironment: true,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// A nil *metrics is safe to record on.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates an http.Transport from the configuration.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		DisableKeepAlives:     hc.DisableKeepAlives,
		TLSClientConfig:       cfg.TLSConfig,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else if cfg.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Option configures the HTTP client.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport configuration.
// Use DefaultConfig(), LowLatencyConfig() or ConservativeConfig() as a
// starting point.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithConfig(httpclient.LowLatencyConfig()),
//	)
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithServiceName sets an identifier for this client in traces and metrics.
// It is added as the "http.client.name" attribute.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithPropagators sets the propagators used to inject trace context.
// Default: W3C TraceContext + Baggage.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		cfg.Propagators = p
	}
}

// WithLogger sets the zerolog logger used for debug output.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client := httpclient.New(
//	    httpclient.WithLogger(logger),
//	    httpclient.WithDebug(true),
//	)
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug enables request/response logging at debug level.
// Credentials are never logged; URLs are redacted.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}

// WithAuthCheck makes FetchWithBasicAuth fail with an auth error when the
// server answers 401 or 403. By default the body is returned unconditionally
// and the caller inspects it.
func WithAuthCheck(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.AuthCheck = enabled
	}
}

// WithHeader adds a header sent with every request.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithHeader("User-Agent", "weblib/1.0"),
//	)
func WithHeader(key, value string) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultHeaders.Add(key, value)
	}
}

// WithTLSConfig sets a custom TLS configuration.
//
// Example - Mutual TLS with client certificate:
//
//	cert, _ := tls.LoadX509KeyPair("client.crt", "client.key")
//	client := httpclient.New(
//	    httpclient.WithTLSConfig(&tls.Config{
//	        Certificates: []tls.Certificate{cert},
//	    }),
//	)
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL sets a specific proxy URL for all requests.
// When set, this takes precedence over environment variables.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
		cfg.ProxyFromEnvironment = false
	}
}

// WithProxyFromEnvironment enables or disables reading proxy settings
// from HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
//
// Default: true
func WithProxyFromEnvironment(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyFromEnvironment = enabled
	}
}

// WithTransport replaces the built-in transport. Instrumentation, rate
// limiting and circuit breaking still wrap it.
//
// Use this to route requests through a fake in tests:
//
//	mock := httpclient.NewMockTransport().StubResponse(200, "ok")
//	client := httpclient.New(httpclient.WithTransport(mock))
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = rt
	}
}

// WithRateLimit enables client-level rate limiting.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithRateLimit(httpclient.DefaultRateLimitConfig()),
//	)
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = &rl
	}
}

// WithCircuitBreaker enables circuit breaking for every request.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("billing-api"),
//	    httpclient.WithCircuitBreaker(httpclient.DefaultBreakerConfig()),
//	)
func WithCircuitBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}
