package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/traffic"
)

type mockResolver struct {
	mu       sync.Mutex
	weather  models.WeatherData
	ok       bool
	langs    []models.Lang
	deadline bool
}

func (m *mockResolver) Resolve(ctx context.Context, lang models.Lang) (models.WeatherData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.langs = append(m.langs, lang)
	_, m.deadline = ctx.Deadline()
	return m.weather, m.ok
}

func sampleWeather(temp int) models.WeatherData {
	return models.WeatherData{
		Temp: temp, Condition: models.ConditionOvercast, IconCode: 104, Location: "beijing",
		Humidity: 80, WindSpeed: 5, FeelsLike: temp - 1, MinTemp: temp - 3, MaxTemp: temp + 2, IsDay: false,
	}
}

func newTestHandler(resolvers map[string]Resolver, tracker *traffic.Tracker, hc *HealthConfig) *Handler {
	return NewHandler(resolvers, "open-meteo", models.LangZH, tracker, hc, zap.NewNop())
}

func serve(t *testing.T, h *Handler, cfg RouterConfig, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(h, zap.NewNop(), cfg)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

// TestGetWeather_Defaults verifies that provider and lang default to the
// configured primary and language.
func TestGetWeather_Defaults(t *testing.T) {
	om := &mockResolver{weather: sampleWeather(14), ok: true}
	qw := &mockResolver{weather: sampleWeather(40), ok: true}
	h := newTestHandler(map[string]Resolver{"open-meteo": om, "qweather": qw}, nil, nil)

	w := serve(t, h, RouterConfig{}, "/weather")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.WeatherData
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != sampleWeather(14) {
		t.Errorf("body = %+v, want open-meteo value", got)
	}
	if len(om.langs) != 1 || om.langs[0] != models.LangZH {
		t.Errorf("resolved langs = %v, want [zh]", om.langs)
	}
	if len(qw.langs) != 0 {
		t.Error("qweather resolver called for default provider")
	}
}

func TestGetWeather_SelectsProviderAndLang(t *testing.T) {
	om := &mockResolver{ok: true}
	qw := &mockResolver{weather: sampleWeather(40), ok: true}
	h := newTestHandler(map[string]Resolver{"open-meteo": om, "qweather": qw}, nil, nil)

	w := serve(t, h, RouterConfig{}, "/weather?provider=QWeather&lang=EN")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(qw.langs) != 1 || qw.langs[0] != models.LangEN {
		t.Errorf("qweather langs = %v, want [en]", qw.langs)
	}
}

func TestGetWeather_BadRequests(t *testing.T) {
	h := newTestHandler(map[string]Resolver{"open-meteo": &mockResolver{ok: true}}, nil, nil)
	tests := []struct {
		target string
		code   string
	}{
		{"/weather?provider=darksky", "INVALID_PROVIDER"},
		{"/weather?provider=qweather", "INVALID_PROVIDER"},
		{"/weather?lang=fr", "INVALID_LANG"},
	}
	for _, tt := range tests {
		w := serve(t, h, RouterConfig{}, tt.target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.target, w.Code)
			continue
		}
		if body := decodeError(t, w); body.Error.Code != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.target, body.Error.Code, tt.code)
		}
	}
}

func TestGetWeather_Unavailable(t *testing.T) {
	h := newTestHandler(map[string]Resolver{"open-meteo": &mockResolver{ok: false}}, nil, nil)
	w := serve(t, h, RouterConfig{}, "/weather")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	body := decodeError(t, w)
	if body.Error.Code != "WEATHER_UNAVAILABLE" {
		t.Errorf("code = %q, want WEATHER_UNAVAILABLE", body.Error.Code)
	}
	if body.Error.RequestID == "" || body.Error.RequestID != w.Header().Get(CorrelationIDHeader) {
		t.Errorf("requestId = %q, want correlation id %q", body.Error.RequestID, w.Header().Get(CorrelationIDHeader))
	}
}

func TestGetWeather_RequestTimeoutApplied(t *testing.T) {
	r := &mockResolver{ok: true}
	h := newTestHandler(map[string]Resolver{"open-meteo": r}, nil, nil)
	serve(t, h, RouterConfig{RequestTimeout: time.Second}, "/weather")
	if !r.deadline {
		t.Error("resolver context has no deadline")
	}
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Window struct {
		Resolutions int `json:"resolutions"`
		Degraded    int `json:"degraded"`
	} `json:"window"`
}

func getHealth(t *testing.T, h *Handler) (int, healthBody) {
	t.Helper()
	w := serve(t, h, RouterConfig{}, "/health")
	var body healthBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return w.Code, body
}

// TestGetHealth_States verifies ok, degraded and shutting-down in priority order.
func TestGetHealth_States(t *testing.T) {
	tracker := traffic.NewTracker(nil)
	hc := &HealthConfig{DegradedWindow: time.Minute, DegradedPct: 50}
	h := newTestHandler(map[string]Resolver{"open-meteo": &mockResolver{ok: true}}, tracker, hc)

	if code, body := getHealth(t, h); code != http.StatusOK || body.Status != "ok" {
		t.Errorf("empty window: %d %q, want 200 ok", code, body.Status)
	}

	tracker.Record(traffic.OutcomeLive)
	tracker.Record(traffic.OutcomeUnavailable)
	code, body := getHealth(t, h)
	if code != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Errorf("half unavailable: %d %q, want 503 degraded", code, body.Status)
	}
	if body.Window.Resolutions != 2 || body.Window.Degraded != 1 || body.Checks["weather"] != "unhealthy" {
		t.Errorf("body = %+v", body)
	}

	h.SetShuttingDown(true)
	if code, body := getHealth(t, h); code != http.StatusServiceUnavailable || body.Status != "shutting-down" {
		t.Errorf("shutting down: %d %q, want 503 shutting-down", code, body.Status)
	}
}

func TestGetHealth_CacheCheck(t *testing.T) {
	hc := &HealthConfig{CachePing: func() error { return errors.New("memcached down") }}
	h := newTestHandler(map[string]Resolver{"open-meteo": &mockResolver{ok: true}}, nil, hc)
	code, body := getHealth(t, h)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200 (cache is advisory)", code)
	}
	if body.Checks["cache"] != "unhealthy" {
		t.Errorf("checks = %v, want cache unhealthy", body.Checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(map[string]Resolver{"open-meteo": &mockResolver{ok: true}}, nil, nil)
	serve(t, h, RouterConfig{}, "/weather")
	w := serve(t, h, RouterConfig{}, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpRequestsTotal") {
		t.Error("metrics output missing httpRequestsTotal")
	}
}
