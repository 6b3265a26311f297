package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"trip-planner-service/pkg/logger"
)

type pingRoutes struct{}

func (pingRoutes) Register(r *httprouter.Router, limiter *RateLimiter) {
	r.GET("/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.POST("/limited", limiter.Limit(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusAccepted)
	}))
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:4321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterServesHealthAndRoutes(t *testing.T) {
	h := New(pingRoutes{}, Options{}, logger.NewNopLogger())

	rec := serve(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())

	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/missing").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics").Code)
}

func TestRouterAddsCORSHeaders(t *testing.T) {
	h := New(pingRoutes{}, Options{AllowedOrigins: []string{"http://planner.test"}}, logger.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://planner.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://planner.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterPerClient(t *testing.T) {
	h := New(pingRoutes{}, Options{SyncRequestsPerMinute: 1}, logger.NewNopLogger())

	assert.Equal(t, http.StatusAccepted, serve(h, http.MethodPost, "/limited").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodPost, "/limited").Code)

	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	req.RemoteAddr = "10.0.0.2:4321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	h := New(pingRoutes{}, Options{}, logger.NewNopLogger())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusAccepted, serve(h, http.MethodPost, "/limited").Code)
	}
}
