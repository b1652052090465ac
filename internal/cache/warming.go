package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/observability"
)

// ErrUnavailable is reported for a language that resolved to no value.
var ErrUnavailable = errors.New("weather unavailable")

// Resolver is implemented by the service layer. Used by CacheWarmer to avoid
// a circular dependency on the service package.
type Resolver interface {
	Resolve(ctx context.Context, lang models.Lang) (models.WeatherData, bool)
}

// CacheWarmer keeps the cache fresh by resolving each language ahead of requests.
type CacheWarmer struct {
	resolver Resolver
	logger   *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given resolver and logger.
func NewCacheWarmer(resolver Resolver, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{resolver: resolver, logger: logger}
}

// Warm resolves each language concurrently. Returns an error naming every
// language that came back unavailable.
func (w *CacheWarmer) Warm(ctx context.Context, langs []models.Lang) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Debug("warming cache", zap.Int("languages", len(langs)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, lang := range langs {
		wg.Add(1)
		go func(lang models.Lang) {
			defer wg.Done()
			if _, ok := w.resolver.Resolve(ctx, lang); !ok {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm %s: %w", lang, ErrUnavailable))
				mu.Unlock()
			}
		}(lang)
	}
	wg.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Debug("cache warming complete",
		zap.Int("languages", len(langs)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return errors.Join(errs...)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes every interval on a cron
// schedule until ctx is done. Runs are not serialized against each other.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, langs []models.Lang, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	if err := w.Warm(ctx, langs); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := w.Warm(ctx, langs); err != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
