package router

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"trip-planner-service/pkg/logger"
)

// Routes registers application handlers. Handlers that reach a remote store
// are expected to be wrapped with limiter.Limit.
type Routes interface {
	Register(r *httprouter.Router, limiter *RateLimiter)
}

// Options configures the HTTP stack
type Options struct {
	AllowedOrigins        []string
	SyncRequestsPerMinute int
	// Metrics serves /metrics; the default Prometheus registry when nil
	Metrics http.Handler
}

// New builds the HTTP handler: CORS, then request logging, then the router
func New(routes Routes, opts Options, logger logger.Logger) http.Handler {
	router := httprouter.New()
	router.GET("/health", health)

	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.Handler(http.MethodGet, "/metrics", metrics)

	routes.Register(router, NewRateLimiter(opts.SyncRequestsPerMinute))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(loggingMiddleware(router, logger))

	return corsHandler
}

func health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Healthy"))
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs method, path, status and duration of each request
func loggingMiddleware(next http.Handler, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}
