package httpbin

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the echo server configuration.
//
// Use DefaultConfig() or DevelopmentConfig() to get a properly initialized
// configuration, then modify specific fields as needed.
//
// Example:
//
//	cfg := httpbin.DefaultConfig()
//	cfg.Addr = ":9090"
//	cfg.MaxDelay = 30 * time.Second
//
//	server := httpbin.New(httpbin.WithConfig(cfg))
type Config struct {
	// Addr is the TCP address to listen on.
	// Default: ":8080"
	Addr string

	// ServiceName identifies the server in logs and spans.
	// Default: "httpbin"
	ServiceName string

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed MaxDelay or /delay answers are cut off.
	// Default: 30s
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive idle limit.
	// Default: 60s
	IdleTimeout time.Duration

	// MaxHeaderBytes limits the request header size.
	// Default: 1MB
	MaxHeaderBytes int

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration

	// MaxDelay caps the wait of /delay/{duration}.
	// Default: 10s
	MaxDelay time.Duration

	// MaxBodyBytes caps request bodies read by the echo endpoints.
	// Default: 1MB
	MaxBodyBytes int64

	// Logger receives lifecycle and request logs.
	// Default: stdout with timestamps
	Logger zerolog.Logger

	// TracerProvider creates server spans. nil means otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Registry receives the request metrics served at /metrics.
	// nil means a fresh registry per server.
	Registry *prometheus.Registry
}

// DefaultConfig returns a balanced configuration.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ServiceName:       "httpbin",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
		ShutdownTimeout:   10 * time.Second,
		MaxDelay:          10 * time.Second,
		MaxBodyBytes:      1 << 20, // 1 MB
		Logger:            zerolog.New(os.Stdout).With().Timestamp().Logger(),
	}
}

// DevelopmentConfig returns a lenient configuration for local use:
// no read/write timeouts and a short shutdown.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.ReadTimeout = 0
	cfg.ReadHeaderTimeout = 0
	cfg.WriteTimeout = 0
	cfg.IdleTimeout = 120 * time.Second
	cfg.ShutdownTimeout = 3 * time.Second
	return cfg
}
