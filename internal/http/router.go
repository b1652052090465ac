package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/homepage-weather/internal/observability"
	"github.com/kjstillabower/homepage-weather/internal/traffic"
)

// RouterConfig configures the /weather route guards.
type RouterConfig struct {
	Limiter        *rate.Limiter // nil disables rate limiting
	Tracker        *traffic.Tracker
	RequestTimeout time.Duration
}

// NewRouter wires /weather, /health and /metrics.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	var weather http.Handler = http.HandlerFunc(h.GetWeather)
	weather = TimeoutMiddleware(cfg.RequestTimeout)(weather)
	weather = RateLimitMiddleware(cfg.Limiter, cfg.Tracker)(weather)
	router.Handle("/weather", weather).Methods(http.MethodGet)
	return router
}
