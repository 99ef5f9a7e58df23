package httpbin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Option configures the server.
type Option func(*Config)

// WithConfig applies all settings from a Config struct.
//
// Example:
//
//	server := httpbin.New(
//	    httpbin.WithConfig(httpbin.DevelopmentConfig()),
//	    httpbin.WithAddr("127.0.0.1:8000"),
//	)
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithServiceName sets the name used in logs and spans.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithLogger sets the logger for lifecycle events and request logs.
//
// Example:
//
//	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
//	server := httpbin.New(httpbin.WithLogger(logger))
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTracerProvider sets the tracer provider for server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithRegistry registers the request metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = reg
	}
}

// WithMaxDelay caps the wait of /delay/{duration}.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}
