package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/fleet-dispatch/internal/middleware"
)

const dashboard = "https://dispatch.example.com"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSHandler_SimpleRequests(t *testing.T) {
	h := middleware.NewCORSHandler([]string{dashboard})(okHandler)

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed origin", dashboard, dashboard},
		{"unknown origin", "https://evil.example.com", ""},
		{"no origin header", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trips/active", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			// The handler still runs; only the browser enforces CORS.
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tc.wantOrigin != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
			}
		})
	}
}

func TestCORSHandler_PatchPreflightWithBearerToken(t *testing.T) {
	h := middleware.NewCORSHandler([]string{dashboard})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/trips/42/dispatch", nil)
	req.Header.Set("Origin", dashboard)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	// Browsers send requested header names in lower case.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, dashboard, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSHandler_DeleteIsNotAllowed(t *testing.T) {
	h := middleware.NewCORSHandler([]string{dashboard})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/trips/42", nil)
	req.Header.Set("Origin", dashboard)
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
