package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/homepage-weather/internal/cache"
	"github.com/kjstillabower/homepage-weather/internal/config"
	httphandler "github.com/kjstillabower/homepage-weather/internal/http"
	"github.com/kjstillabower/homepage-weather/internal/observability"
	"github.com/kjstillabower/homepage-weather/internal/service"
)

const inFlightCheckInterval = 100 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := service.Build(ctx, cfg, logger, service.BuildOptions{})
	if err != nil {
		logger.Fatal("build resolvers", zap.Error(err))
	}
	logger.Info("resolvers ready",
		zap.Strings("providers", cfg.Providers()),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Duration("fresh_window", cfg.FreshWindow))

	observability.RegisterOutcomeGauges(func() (int, int) {
		return stack.Tracker.DegradedRate(cfg.DegradedWindow)
	})

	resolvers := make(map[string]httphandler.Resolver, len(stack.Resolvers))
	for name, r := range stack.Resolvers {
		resolvers[name] = r
	}
	handler := httphandler.NewHandler(resolvers, cfg.PrimaryProvider, cfg.DefaultLang, stack.Tracker, &httphandler.HealthConfig{
		DegradedWindow: cfg.DegradedWindow,
		DegradedPct:    cfg.DegradedPct,
		CachePing:      stack.CachePing,
	}, logger)

	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		Limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		Tracker:        stack.Tracker,
		RequestTimeout: cfg.RequestTimeout,
	})

	warmer := cache.NewCacheWarmer(stack.Default, logger)
	warmDone := make(chan struct{})
	go func() {
		defer close(warmDone)
		if err := warmer.WarmPeriodic(ctx, cfg.Languages, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("periodic cache warming stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	drain(shutdownCtx, srv, handler, logger)

	select {
	case <-warmDone:
	case <-shutdownCtx.Done():
		logger.Warn("cache warmer did not stop before shutdown deadline")
	}

	if err := stack.Close(); err != nil {
		logger.Error("cache close", zap.Error(err))
	}
	logger.Info("shutdown complete")
	if err := observability.FlushLogger(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "logger flush: %v\n", err)
	}
}

// drain marks the handler shutting-down before closing the listener, then
// waits for in-flight requests until ctx is done.
func drain(ctx context.Context, srv *http.Server, h *httphandler.Handler, logger *zap.Logger) {
	h.SetShuttingDown(true)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(ctx, inFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}
}
