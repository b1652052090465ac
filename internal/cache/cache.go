package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/observability"
	"github.com/kjstillabower/homepage-weather/internal/validation"
)

// DefaultFreshWindow is how long a saved value counts as fresh.
const DefaultFreshWindow = 5 * time.Minute

const keyFormat = "weather_cache_v2_%s_%s"

// Key returns the storage key for a provider and language.
func Key(provider string, lang models.Lang) string {
	return fmt.Sprintf(keyFormat, provider, lang)
}

// WeatherCache stores the last good WeatherData per key together with the
// time it was saved. Entries are never expired by age: GetFresh ignores old
// entries while GetStale still returns them.
//
// Store failures are logged and reported as a miss. Entries that fail to
// decode or validate are deleted and reported as a miss.
type WeatherCache struct {
	store       Store
	freshWindow time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a WeatherCache.
type Option func(*WeatherCache)

// WithFreshWindow overrides DefaultFreshWindow.
func WithFreshWindow(d time.Duration) Option {
	return func(c *WeatherCache) {
		if d > 0 {
			c.freshWindow = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *WeatherCache) { c.now = now }
}

// WithLogger sets the logger for store and decode failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *WeatherCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewWeatherCache wraps store.
func NewWeatherCache(store Store, opts ...Option) *WeatherCache {
	c := &WeatherCache{
		store:       store,
		freshWindow: DefaultFreshWindow,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// storedEntry is the decode form of models.CacheEntry. Data is validated
// separately so a partial record is rejected.
type storedEntry struct {
	Timestamp *int64          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// GetFresh returns the value for key only if it was saved less than the
// fresh window ago.
func (c *WeatherCache) GetFresh(ctx context.Context, key string) (models.WeatherData, bool) {
	entry, ok := c.load(ctx, key, "fresh")
	if !ok {
		return models.WeatherData{}, false
	}
	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= c.freshWindow {
		observability.CacheLookupsTotal.WithLabelValues("fresh", "expired").Inc()
		return models.WeatherData{}, false
	}
	observability.CacheLookupsTotal.WithLabelValues("fresh", "hit").Inc()
	return entry.Data, true
}

// GetStale returns the value for key regardless of age.
func (c *WeatherCache) GetStale(ctx context.Context, key string) (models.WeatherData, bool) {
	entry, ok := c.load(ctx, key, "stale")
	if !ok {
		return models.WeatherData{}, false
	}
	observability.CacheLookupsTotal.WithLabelValues("stale", "hit").Inc()
	return entry.Data, true
}

// Save overwrites key with data stamped at the current time. Failures are
// logged only.
func (c *WeatherCache) Save(ctx context.Context, key string, data models.WeatherData) {
	raw, err := json.Marshal(models.CacheEntry{Timestamp: c.now().UnixMilli(), Data: data})
	if err == nil {
		err = c.store.Set(ctx, key, raw)
	}
	if err != nil {
		observability.CacheWritesTotal.WithLabelValues("error").Inc()
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	observability.CacheWritesTotal.WithLabelValues("success").Inc()
}

func (c *WeatherCache) load(ctx context.Context, key, mode string) (models.CacheEntry, bool) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		observability.CacheLookupsTotal.WithLabelValues(mode, "miss").Inc()
		return models.CacheEntry{}, false
	}
	if err != nil {
		observability.CacheLookupsTotal.WithLabelValues(mode, "error").Inc()
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return models.CacheEntry{}, false
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		observability.CacheLookupsTotal.WithLabelValues(mode, "corrupt").Inc()
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		}
		return models.CacheEntry{}, false
	}
	return entry, true
}

func decodeEntry(raw []byte) (models.CacheEntry, error) {
	var se storedEntry
	if err := json.Unmarshal(raw, &se); err != nil {
		return models.CacheEntry{}, err
	}
	if se.Timestamp == nil {
		return models.CacheEntry{}, fmt.Errorf("%w: missing timestamp", validation.ErrShapeMismatch)
	}
	data, err := validation.DecodeWeatherData(se.Data)
	if err != nil {
		return models.CacheEntry{}, err
	}
	return models.CacheEntry{Timestamp: *se.Timestamp, Data: data}, nil
}
