package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/calories/config"
	"github.com/cppla/calories/services"
	"github.com/cppla/calories/store"
	"github.com/cppla/calories/utils"
)

func newTestEngine(metricsEnabled bool) http.Handler {
	return SetupRouter(Dependencies{
		Config: config.AppConfig{
			GinMode:               "test",
			AllowedOrigins:        []string{"*"},
			RateLimitPerMinute:    0,
			MetricsEnabled:        metricsEnabled,
			IdempotencyTTLSeconds: 60,
		},
		Service: services.NewFoodService(store.NewMemoryStore(), nil),
		Replay:  utils.NewMemoryReplayStore(),
	})
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterServesAPI(t *testing.T) {
	h := newTestEngine(false)

	w := serve(h, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(h, http.MethodGet, "/api/v1/food-entries", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Apple")

	w = serve(h, http.MethodGet, "/api/v1/daily-calories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_calories":95`)
}

func TestRouterUnknownAPIRoute(t *testing.T) {
	w := serve(newTestEngine(false), http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40400`)
}

func TestRouterServesClient(t *testing.T) {
	h := newTestEngine(false)

	w := serve(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<html")

	w = serve(h, http.MethodGet, "/static/app.js", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// client-side paths fall back to the page
	w = serve(h, http.MethodGet, "/today", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<html")
}

func TestRouterHealth(t *testing.T) {
	w := serve(newTestEngine(false), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouterMetricsToggle(t *testing.T) {
	w := serve(newTestEngine(false), http.MethodGet, "/metrics", "")
	assert.NotContains(t, w.Body.String(), "go_goroutines")

	h := newTestEngine(true)
	serve(h, http.MethodGet, "/health", "")
	w = serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouterCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/food-entries", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Idempotency-Key")
	w := httptest.NewRecorder()
	newTestEngine(false).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
