package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/traffic"
)

// BenchmarkRouter_GetWeather benchmarks a full /weather request through the
// middleware chain with a resolver that answers immediately.
func BenchmarkRouter_GetWeather(b *testing.B) {
	h := newTestHandler(map[string]Resolver{"open-meteo": &mockResolver{weather: sampleWeather(20), ok: true}}, traffic.NewTracker(nil), nil)
	router := NewRouter(h, zap.NewNop(), RouterConfig{RequestTimeout: time.Second})
	req := httptest.NewRequest(http.MethodGet, "/weather?lang=en", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

// BenchmarkGetHealth benchmarks the health handler with a populated window.
func BenchmarkGetHealth(b *testing.B) {
	tracker := traffic.NewTracker(nil)
	for i := 0; i < 1000; i++ {
		tracker.Record(traffic.OutcomeLive)
	}
	h := newTestHandler(map[string]Resolver{}, tracker, &HealthConfig{DegradedWindow: 5 * time.Minute, DegradedPct: 50})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.GetHealth(httptest.NewRecorder(), req)
	}
}
