package client

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/observability"
)

// BreakerConfig holds circuit breaker parameters for one provider.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	HalfOpenRequests uint32        // probes allowed while half-open
	OpenTimeout      time.Duration // time spent open before probing
}

// NewBreaker returns a breaker for provider that reports transitions to logs and metrics.
func NewBreaker(provider string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	observability.CircuitBreakerState.WithLabelValues(provider).Set(0)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker transition",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			observability.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
