package httpclient

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
)

func TestConfigs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		configFunc        func() Config
		wantTimeout       time.Duration
		wantDialTimeout   time.Duration
		wantDisableKeepAl bool
	}{
		{
			name:            "given default config, then balanced timeouts",
			configFunc:      DefaultConfig,
			wantTimeout:     30 * time.Second,
			wantDialTimeout: 10 * time.Second,
		},
		{
			name:            "given low latency config, then fails fast",
			configFunc:      LowLatencyConfig,
			wantTimeout:     5 * time.Second,
			wantDialTimeout: 2 * time.Second,
		},
		{
			name:              "given conservative config, then no keep-alives",
			configFunc:        ConservativeConfig,
			wantTimeout:       15 * time.Second,
			wantDialTimeout:   5 * time.Second,
			wantDisableKeepAl: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.configFunc()

			assert.Equal(t, tt.wantTimeout, cfg.Timeout)
			assert.Equal(t, tt.wantDialTimeout, cfg.DialTimeout)
			assert.Equal(t, tt.wantDisableKeepAl, cfg.DisableKeepAlives)
		})
	}
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("given no options, then applies defaults", func(t *testing.T) {
		cfg := newConfig()

		assert.Equal(t, DefaultConfig(), cfg.httpConfig)
		assert.NotNil(t, cfg.Tracer)
		assert.NotNil(t, cfg.Meter)
		assert.NotNil(t, cfg.Metrics)
		assert.True(t, cfg.ProxyFromEnvironment)
		assert.False(t, cfg.Debug)
		assert.False(t, cfg.AuthCheck)
		assert.Nil(t, cfg.RateLimit)
		assert.Nil(t, cfg.BreakerConfig)
		assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, cfg.Propagators.Fields())
		assert.Empty(t, cfg.baseAttributes())
	})

	t.Run("given options, then applies each", func(t *testing.T) {
		proxy, err := url.Parse("http://proxy.internal:3128")
		require.NoError(t, err)
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS13}
		mock := NewMockTransport()

		cfg := newConfig(
			WithConfig(LowLatencyConfig()),
			WithServiceName("svc"),
			WithLogger(zerolog.Nop()),
			WithDebug(true),
			WithAuthCheck(true),
			WithHeader("X-A", "1"),
			WithHeader("X-A", "2"),
			WithTLSConfig(tlsCfg),
			WithProxyURL(proxy),
			WithPropagators(propagation.TraceContext{}),
			WithTransport(mock),
			WithRateLimit(DefaultRateLimitConfig()),
			WithCircuitBreaker(DefaultBreakerConfig()),
		)

		assert.Equal(t, LowLatencyConfig(), cfg.httpConfig)
		assert.Equal(t, "svc", cfg.ServiceName)
		assert.True(t, cfg.Debug)
		assert.True(t, cfg.AuthCheck)
		assert.Equal(t, []string{"1", "2"}, cfg.DefaultHeaders.Values("X-A"))
		assert.Same(t, tlsCfg, cfg.TLSConfig)
		assert.Equal(t, proxy, cfg.ProxyURL)
		assert.False(t, cfg.ProxyFromEnvironment)
		assert.Equal(t, []string{"traceparent", "tracestate"}, cfg.Propagators.Fields())
		assert.Equal(t, mock, cfg.Transport)
		require.NotNil(t, cfg.RateLimit)
		require.NotNil(t, cfg.BreakerConfig)
		assert.Len(t, cfg.baseAttributes(), 1)
	})
}

func TestBuildTransport(t *testing.T) {
	t.Parallel()

	t.Run("given conservative config, then mirrors pool settings", func(t *testing.T) {
		cfg := newConfig(WithConfig(ConservativeConfig()), WithProxyFromEnvironment(false))

		tr := cfg.buildTransport()

		assert.Equal(t, 10, tr.MaxIdleConns)
		assert.Equal(t, 2, tr.MaxIdleConnsPerHost)
		assert.True(t, tr.DisableKeepAlives)
		assert.Nil(t, tr.Proxy)
	})

	t.Run("given proxy url, then routes through it", func(t *testing.T) {
		proxy, err := url.Parse("http://proxy.internal:3128")
		require.NoError(t, err)
		cfg := newConfig(WithProxyURL(proxy))

		tr := cfg.buildTransport()
		require.NotNil(t, tr.Proxy)

		got, err := tr.Proxy(&http.Request{URL: &url.URL{Scheme: "https", Host: "api.example.com"}})
		require.NoError(t, err)
		assert.Equal(t, proxy, got)
	})
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	client := New()

	assert.NotPanics(t, func() {
		client.Close()
		client.Close()
	})
}
