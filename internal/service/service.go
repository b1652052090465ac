package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/cache"
	"github.com/kjstillabower/homepage-weather/internal/client"
	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/observability"
	"github.com/kjstillabower/homepage-weather/internal/traffic"
)

// cacheOpTimeout bounds each cache read or write. Cache calls do not inherit
// the caller's deadline so a stale value can still be served after the
// providers used it up.
const cacheOpTimeout = 2 * time.Second

// Resolution outcomes, used as metric labels.
const (
	OutcomeFreshCache  = "fresh_cache"
	OutcomeProxy       = "proxy"
	OutcomePrimary     = "primary"
	OutcomeSecondary   = "secondary"
	OutcomeStaleCache  = "stale_cache"
	OutcomeUnavailable = "unavailable"
)

// Deps are the collaborators of a Resolver. Primary and Cache are required.
type Deps struct {
	Primary   client.Provider
	Secondary client.Provider // optional fallback
	Proxy     client.Provider // optional, tried before any provider
	Cache     *cache.WeatherCache
	Throttle  *WarnThrottle
	Tracker   *traffic.Tracker
	Logger    *zap.Logger
}

// Resolver produces the weather to show for a language, preferring fresh
// cache, then the proxy, then the primary and secondary providers, and
// finally a stale cached value. Every invocation is independent; concurrent
// calls are not coalesced and the last save wins.
type Resolver struct {
	primary   client.Provider
	secondary client.Provider
	proxy     client.Provider
	cache     *cache.WeatherCache
	throttle  *WarnThrottle
	tracker   *traffic.Tracker
	logger    *zap.Logger
}

// NewResolver validates deps and fills defaults.
func NewResolver(deps Deps) (*Resolver, error) {
	if deps.Primary == nil {
		return nil, errors.New("resolver: primary provider is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("resolver: cache is required")
	}
	if deps.Throttle == nil {
		deps.Throttle = NewWarnThrottle(DefaultWarnInterval, nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Resolver{
		primary:   deps.Primary,
		secondary: deps.Secondary,
		proxy:     deps.Proxy,
		cache:     deps.Cache,
		throttle:  deps.Throttle,
		tracker:   deps.Tracker,
		logger:    deps.Logger,
	}, nil
}

// Primary returns the name of the primary provider, which also names the cache key.
func (r *Resolver) Primary() string {
	return r.primary.Name()
}

// Resolve returns the weather for lang. ok=false means nothing could be
// served, which callers render as "unavailable" rather than an error.
func (r *Resolver) Resolve(ctx context.Context, lang models.Lang) (data models.WeatherData, ok bool) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, r.logger).With(zap.String("lang", string(lang)))
	key := cache.Key(r.primary.Name(), lang)

	var outcome string
	defer func() {
		r.record(outcome)
		logger.Debug("weather resolved",
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)))
	}()

	if cached, hit := r.getFresh(ctx, key); hit {
		outcome = OutcomeFreshCache
		return cached, true
	}

	if r.proxy != nil {
		d, err := r.proxy.FetchCurrent(ctx, lang)
		if err == nil {
			outcome = OutcomeProxy
			r.save(ctx, key, d)
			return d, true
		}
		r.warn(logger, r.proxy.Name(), err, "proxy failed, calling providers directly")
	}

	d, primaryErr := r.primary.FetchCurrent(ctx, lang)
	if primaryErr == nil {
		outcome = OutcomePrimary
		r.save(ctx, key, d)
		return d, true
	}

	if r.secondary != nil {
		d, err := r.secondary.FetchCurrent(ctx, lang)
		if err == nil {
			// One warning for the whole fallback: the primary failure is the news.
			r.warn(logger, r.primary.Name(), primaryErr, "primary provider failed, served secondary",
				zap.String("secondary", r.secondary.Name()))
			outcome = OutcomeSecondary
			r.save(ctx, key, d)
			return d, true
		}
		r.warn(logger, r.primary.Name(), primaryErr, "primary provider failed")
		r.warn(logger, r.secondary.Name(), err, "secondary provider failed")
	} else {
		r.warn(logger, r.primary.Name(), primaryErr, "primary provider failed")
	}

	if stale, hit := r.getStale(ctx, key); hit {
		r.warnKey(logger, "cache:stale", "all live sources failed, serving stale weather")
		outcome = OutcomeStaleCache
		return stale, true
	}

	r.warnKey(logger, "cache:unavailable", "all live sources failed and no cached weather, reporting unavailable")
	outcome = OutcomeUnavailable
	return models.WeatherData{}, false
}

func (r *Resolver) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
}

func (r *Resolver) getFresh(ctx context.Context, key string) (models.WeatherData, bool) {
	cctx, cancel := r.cacheContext(ctx)
	defer cancel()
	return r.cache.GetFresh(cctx, key)
}

func (r *Resolver) getStale(ctx context.Context, key string) (models.WeatherData, bool) {
	cctx, cancel := r.cacheContext(ctx)
	defer cancel()
	return r.cache.GetStale(cctx, key)
}

func (r *Resolver) save(ctx context.Context, key string, d models.WeatherData) {
	cctx, cancel := r.cacheContext(ctx)
	defer cancel()
	r.cache.Save(cctx, key, d)
}

// warn logs a source failure keyed by source and error category.
func (r *Resolver) warn(logger *zap.Logger, source string, err error, msg string, fields ...zap.Field) {
	category := client.CategorizeError(err)
	if !r.throttle.Allow(source + ":" + string(category)) {
		return
	}
	fields = append(fields,
		zap.String("source", source),
		zap.String("category", string(category)),
		zap.Error(err))
	logger.Warn(msg, fields...)
}

func (r *Resolver) warnKey(logger *zap.Logger, key, msg string) {
	if r.throttle.Allow(key) {
		logger.Warn(msg)
	}
}

func (r *Resolver) record(outcome string) {
	observability.ResolutionsTotal.WithLabelValues(outcome).Inc()
	if r.tracker == nil {
		return
	}
	switch outcome {
	case OutcomeFreshCache:
		r.tracker.Record(traffic.OutcomeCached)
	case OutcomeStaleCache:
		r.tracker.Record(traffic.OutcomeStale)
	case OutcomeUnavailable:
		r.tracker.Record(traffic.OutcomeUnavailable)
	default:
		r.tracker.Record(traffic.OutcomeLive)
	}
}
