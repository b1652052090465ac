package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/cache"
	"github.com/kjstillabower/homepage-weather/internal/client"
	"github.com/kjstillabower/homepage-weather/internal/config"
	"github.com/kjstillabower/homepage-weather/internal/traffic"
)

// Stack is the resolver set built from a Config, one Resolver per enabled
// provider, sharing a cache, throttle and tracker.
type Stack struct {
	Resolvers map[string]*Resolver
	Default   *Resolver
	Cache     *cache.WeatherCache
	Tracker   *traffic.Tracker
	// CachePing checks backend reachability. Nil for the in-memory store.
	CachePing func() error

	closers []func() error
}

// Close releases the cache backend.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildOptions adjusts Build for the calling binary.
type BuildOptions struct {
	// UseProxy routes resolution through cfg.ProxyURL first when it is set.
	// The service itself serves the proxy endpoint and leaves this off.
	UseProxy bool
}

// Build wires providers, breakers, the cache backend and resolvers from cfg.
// When a secondary is configured it gets its own resolver whose fallback is
// the primary, so either provider can be requested by name.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts BuildOptions) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, ping, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Stack{
		Resolvers: make(map[string]*Resolver),
		Cache:     cache.NewWeatherCache(store, cache.WithFreshWindow(cfg.FreshWindow), cache.WithLogger(logger)),
		Tracker:   traffic.NewTracker(nil),
		CachePing: ping,
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	site := client.Site{
		LocationKey: cfg.LocationKey,
		Latitude:    cfg.Latitude,
		Longitude:   cfg.Longitude,
		Timezone:    cfg.Timezone,
	}
	breaker := client.BreakerConfig{
		FailureThreshold: cfg.BreakerFailureThreshold,
		HalfOpenRequests: cfg.BreakerHalfOpenRequests,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}
	providers := make(map[string]client.Provider)
	for _, name := range cfg.Providers() {
		o := client.Options{
			Timeout: cfg.ProviderTimeout,
			Breaker: client.NewBreaker(name, breaker, logger),
			Logger:  logger,
		}
		switch name {
		case config.ProviderOpenMeteo:
			providers[name] = client.NewOpenMeteoClient(cfg.OpenMeteoURL, site, o)
		case config.ProviderQWeather:
			providers[name] = client.NewQWeatherClient(cfg.QWeatherHost, cfg.QWeatherAPIKey, site, o)
		default:
			_ = s.Close()
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	throttle := NewWarnThrottle(cfg.WarnInterval, nil)
	names := cfg.Providers()
	for i, name := range names {
		deps := Deps{
			Primary:  providers[name],
			Cache:    s.Cache,
			Throttle: throttle,
			Tracker:  s.Tracker,
			Logger:   logger,
		}
		if len(names) == 2 {
			deps.Secondary = providers[names[1-i]]
		}
		if opts.UseProxy && cfg.ProxyURL != "" {
			deps.Proxy = client.NewProxyClient(cfg.ProxyURL, name, client.Options{Timeout: cfg.ProviderTimeout, Logger: logger})
		}
		r, err := NewResolver(deps)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Resolvers[name] = r
	}
	s.Default = s.Resolvers[cfg.PrimaryProvider]
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func() error, func() error, error) {
	switch cfg.CacheBackend {
	case config.BackendMemcached:
		mc := cache.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		return mc, mc.Ping, mc.Close, nil
	case config.BackendSQLite, config.BackendPostgres:
		dialect, dsn := cache.DialectSQLite, cfg.SQLitePath
		if cfg.CacheBackend == config.BackendPostgres {
			dialect, dsn = cache.DialectPostgres, cfg.DatabaseURL
		}
		st, err := cache.OpenSQLStore(ctx, dialect, dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
		}
		ping := func() error { return st.Ping(context.Background()) }
		return st, ping, st.Close, nil
	default:
		return cache.NewMemoryStore(), nil, nil, nil
	}
}
