package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/itinerary"
	"luxe/middleware"
	"luxe/ratelim"
	"luxe/routes"
)

func testHandler(origins []string) http.Handler {
	h := itinerary.NewHandler(itinerary.NewRegistry(), nil, nil, nil)
	router := routes.New(h, middleware.NewAuth(""), ratelim.NewRateLimiter(0, 1))
	return newHTTPHandler(router, origins, zap.NewNop())
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler([]string{"*"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}

func TestCORSPreflight(t *testing.T) {
	handler := testHandler([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/itineraries", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/itineraries", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestFromFlags(t *testing.T) {
	saved := buildFlags
	t.Cleanup(func() { buildFlags = saved })

	buildFlags.from, buildFlags.to, buildFlags.email = " NYC ", "Paris", "a@b.com"
	buildFlags.days, buildFlags.budget, buildFlags.travelers = 3, "$5,000", 0

	req, err := requestFromFlags()
	require.NoError(t, err)
	assert.Equal(t, "NYC", req.Origin)
	assert.Equal(t, 5000.0, req.Budget.Amount)
	assert.Equal(t, "Cultural", req.Vibe)
	assert.Equal(t, 2, req.Travelers)

	buildFlags.budget = "plenty"
	_, err = requestFromFlags()
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	buildFlags.budget, buildFlags.days = "mid", 15
	_, err = requestFromFlags()
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr("8080"))
	assert.Equal(t, ":9000", listenAddr(":9000"))
}
