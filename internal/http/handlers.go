package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/observability"
	"github.com/kjstillabower/homepage-weather/internal/traffic"
	"github.com/kjstillabower/homepage-weather/internal/validation"
)

// Resolver resolves weather for one primary provider. Implemented by *service.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, lang models.Lang) (models.WeatherData, bool)
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow time.Duration
	DegradedPct    int
	// CachePing, when set, is called to check cache reachability.
	CachePing func() error
	Version   string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	resolvers       map[string]Resolver
	providers       []string
	defaultProvider string
	defaultLang     models.Lang
	tracker         *traffic.Tracker
	healthConfig    *HealthConfig
	logger          *zap.Logger

	shuttingDown     atomic.Bool
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a Handler serving one resolver per provider name.
// defaultProvider and defaultLang apply when the query omits them.
func NewHandler(
	resolvers map[string]Resolver,
	defaultProvider string,
	defaultLang models.Lang,
	tracker *traffic.Tracker,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	providers := make([]string, 0, len(resolvers))
	for name := range resolvers {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resolvers:       resolvers,
		providers:       providers,
		defaultProvider: defaultProvider,
		defaultLang:     defaultLang,
		tracker:         tracker,
		healthConfig:    healthConfig,
		logger:          logger,
	}
}

// SetShuttingDown marks the process as draining. /health reports
// shutting-down while set.
func (h *Handler) SetShuttingDown(v bool) {
	h.shuttingDown.Store(v)
}

// GetWeather handles GET /weather?provider=&lang=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	provider := h.defaultProvider
	if p := q.Get("provider"); p != "" {
		var err error
		if provider, err = validation.ValidateProvider(p, h.providers); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_PROVIDER", err.Error())
			return
		}
	}
	lang := h.defaultLang
	if l := q.Get("lang"); l != "" {
		var err error
		if lang, err = validation.ValidateLang(l); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_LANG", err.Error())
			return
		}
	}

	resolver, ok := h.resolvers[provider]
	if !ok {
		writeError(w, r, http.StatusBadRequest, "INVALID_PROVIDER", validation.ErrInvalidProvider.Error())
		return
	}
	data, ok := resolver.Resolve(r.Context(), lang)
	if !ok {
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			observability.LoggerFromContext(r.Context(), h.logger).Debug("request deadline exceeded during resolution")
		}
		writeError(w, r, http.StatusServiceUnavailable, "WEATHER_UNAVAILABLE", "Weather unavailable")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weather": "healthy"}
	if result.status == "degraded" {
		checks["weather"] = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil {
		if h.healthConfig.CachePing != nil {
			if h.healthConfig.CachePing() == nil {
				checks["cache"] = "healthy"
			} else {
				checks["cache"] = "unhealthy"
			}
		}
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "homepage-weather",
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.tracker != nil && h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		degraded, total := h.tracker.DegradedRate(h.healthConfig.DegradedWindow)
		resp["window"] = map[string]interface{}{
			"length":      h.healthConfig.DegradedWindow.String(),
			"resolutions": total,
			"degraded":    degraded,
		}
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down, degraded, ok.
func (h *Handler) computeHealthStatus() healthResult {
	if h.shuttingDown.Load() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.tracker != nil && h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedPct > 0 {
		if h.tracker.Degraded(h.healthConfig.DegradedWindow, float64(h.healthConfig.DegradedPct)) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "stale_or_unavailable_rate"}
		}
	}
	return healthResult{"ok", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message and the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": CorrelationID(r.Context()),
		},
	})
}
