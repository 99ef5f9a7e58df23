package httpbin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// newRouter wires the endpoints behind the middleware stack.
//
// Request flow:
//
//	Recovery -> RequestID -> Tracing -> Metrics -> Logger -> handler
func newRouter(cfg Config, logger zerolog.Logger) http.Handler {
	m := newMetrics(cfg.Registry)

	h := &handlers{maxDelay: cfg.MaxDelay, maxBody: cfg.MaxBodyBytes}

	r := chi.NewRouter()
	r.Use(
		recovery(logger),
		requestID(),
		tracing(cfg.TracerProvider, cfg.ServiceName),
		m.middleware(),
		requestLogger(logger, cfg.ServiceName, "/metrics"),
	)

	r.Get("/get", h.get)
	r.Post("/post", h.post)
	r.Get("/ip", h.ip)
	r.Get("/headers", h.headers)
	r.Get("/basic-auth/{user}/{passwd}", h.basicAuth)
	r.HandleFunc("/status/{code}", h.status)
	r.Get("/delay/{duration}", h.delay)
	r.Get("/bytes/{n}", h.bytes)
	r.Get("/encoding/{charset}", h.encoding)
	r.HandleFunc("/anything", h.anything)
	r.HandleFunc("/anything/*", h.anything)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{
		Registry: cfg.Registry,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
