//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/cache"
	"github.com/kjstillabower/homepage-weather/internal/client"
	"github.com/kjstillabower/homepage-weather/internal/service"
)

// IntegrationTestConfig holds configuration for tests against live upstreams.
type IntegrationTestConfig struct {
	QWeatherAPIKey string
	CacheBackend   string // "in_memory" or "memcached"
	MemcachedAddr  string
}

// Beijing is the site used by live tests.
var Beijing = client.Site{LocationKey: "beijing", Latitude: 39.9042, Longitude: 116.4074, Timezone: "Asia/Shanghai"}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test unless INTEGRATION_LIVE is set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	if os.Getenv("INTEGRATION_LIVE") == "" {
		t.Skip("INTEGRATION_LIVE not set, skipping live upstream test")
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{
		QWeatherAPIKey: os.Getenv("QWEATHER_API_KEY"),
		CacheBackend:   os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr:  memcachedAddr,
	}
}

// SetupIntegrationResolver builds a resolver over the live providers. The
// secondary is added only when a QWeather key is configured.
func SetupIntegrationResolver(t *testing.T, cfg IntegrationTestConfig) (*service.Resolver, *cache.WeatherCache) {
	t.Helper()
	opts := client.Options{Timeout: 12 * time.Second}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.CacheBackend == "memcached" {
		mc := cache.NewMemcachedStore(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err := mc.Ping(); err != nil {
			t.Logf("memcached not available (%v), using in-memory store", err)
		} else {
			store = mc
			t.Cleanup(func() { mc.Close() })
		}
	}
	wc := cache.NewWeatherCache(store)

	deps := service.Deps{
		Primary: client.NewOpenMeteoClient("", Beijing, opts),
		Cache:   wc,
		Logger:  zap.NewNop(),
	}
	if cfg.QWeatherAPIKey != "" {
		deps.Secondary = client.NewQWeatherClient("", cfg.QWeatherAPIKey, Beijing, opts)
	}
	r, err := service.NewResolver(deps)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r, wc
}
