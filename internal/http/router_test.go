package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	intconfig "carrental/internal/config"
	h "carrental/internal/http/handlers"

	"github.com/gin-gonic/gin"
)

func TestRouterMountsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(intconfig.Env{JWTSecret: "s3cret"}, Deps{
		System: h.SystemHandler{DB: func(context.Context) error { return nil }},
	})

	want := map[string]bool{
		"GET /api/health":                                false,
		"POST /api/v1/bookings":                          false,
		"GET /api/v1/bookings/:bookingId":                false,
		"DELETE /api/v1/bookings/:bookingId":             false,
		"GET /api/v1/bookings/:bookingId/voucher":        false,
		"POST /api/v1/admin/sweeps":                      false,
		"GET /api/v1/admin/payment-events/:paymentId":    false,
		"DELETE /api/v1/admin/payment-events/:paymentId": false,
	}
	for _, rt := range r.Routes() {
		key := rt.Method + " " + rt.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Fatalf("route %s not mounted", route)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweeps", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("admin routes must require a token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("unexpected health response %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
