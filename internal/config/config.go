package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/homepage-weather/internal/models"
)

// Provider names accepted in providers.primary and providers.secondary.
const (
	ProviderOpenMeteo = "open-meteo"
	ProviderQWeather  = "qweather"
)

// Cache backends.
const (
	BackendInMemory  = "in_memory"
	BackendMemcached = "memcached"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
)

// Config holds service configuration loaded from YAML, .env and env.
type Config struct {
	ServerPort string
	LogLevel   string

	LocationKey string
	Latitude    float64
	Longitude   float64
	Timezone    string

	PrimaryProvider   string
	SecondaryProvider string // empty disables the fallback
	OpenMeteoURL      string
	QWeatherHost      string
	QWeatherAPIKey    string
	ProxyURL          string // empty disables the proxy path
	ProviderTimeout   time.Duration

	BreakerFailureThreshold uint32
	BreakerHalfOpenRequests uint32
	BreakerOpenTimeout      time.Duration

	CacheBackend          string
	FreshWindow           time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	SQLitePath            string
	DatabaseURL           string

	WarnInterval    time.Duration
	RefreshInterval time.Duration
	Languages       []models.Lang
	DefaultLang     models.Lang

	RequestTimeout  time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	ShutdownTimeout time.Duration
	DegradedWindow  time.Duration
	DegradedPct     int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Location struct {
		Key       string   `yaml:"key"`
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
		Timezone  string   `yaml:"timezone"`
	} `yaml:"location"`

	Providers struct {
		Primary   string `yaml:"primary"`
		Secondary string `yaml:"secondary"`
		Timeout   string `yaml:"timeout"`
		OpenMeteo struct {
			URL string `yaml:"url"`
		} `yaml:"open_meteo"`
		QWeather struct {
			Host string `yaml:"host"`
		} `yaml:"qweather"`
		CircuitBreaker struct {
			FailureThreshold uint32 `yaml:"failure_threshold"`
			HalfOpenRequests uint32 `yaml:"half_open_requests"`
			OpenTimeout      string `yaml:"open_timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"providers"`

	Proxy struct {
		URL string `yaml:"url"`
	} `yaml:"proxy"`

	Cache struct {
		Backend     string `yaml:"backend"`
		FreshWindow string `yaml:"fresh_window"`
		Memcached   struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Postgres struct {
			URL string `yaml:"url"`
		} `yaml:"postgres"`
	} `yaml:"cache"`

	Resolver struct {
		WarnInterval    string   `yaml:"warn_interval"`
		RefreshInterval string   `yaml:"refresh_interval"`
		Languages       []string `yaml:"languages"`
		DefaultLang     string   `yaml:"default_lang"`
	} `yaml:"resolver"`

	Reliability struct {
		RequestTimeout string `yaml:"request_timeout"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
		DegradedWindow string `yaml:"degraded_window"`
		DegradedPct    int    `yaml:"degraded_pct"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	QWeatherAPIKey string `yaml:"qweather_api_key"`
}

// Load reads configuration relative to the working directory. See LoadFrom.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads dir/.env when present, then dir/config/{ENV_NAME}.yaml (default
// dev) and dir/config/secrets.yaml. Environment variables override file values.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("SERVER_PORT"), fc.Server.Port, "8080")
	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), fc.Log.Level, "INFO")

	cfg.LocationKey = firstNonEmpty(fc.Location.Key, "beijing")
	cfg.Latitude = 39.9042
	if fc.Location.Latitude != nil {
		cfg.Latitude = *fc.Location.Latitude
	}
	cfg.Longitude = 116.4074
	if fc.Location.Longitude != nil {
		cfg.Longitude = *fc.Location.Longitude
	}
	cfg.Timezone = firstNonEmpty(fc.Location.Timezone, "auto")

	cfg.PrimaryProvider = normalize(firstNonEmpty(fc.Providers.Primary, ProviderOpenMeteo))
	cfg.SecondaryProvider = normalize(fc.Providers.Secondary)
	cfg.ProviderTimeout = parseDuration(fc.Providers.Timeout, 12*time.Second)
	cfg.OpenMeteoURL = strings.TrimSpace(fc.Providers.OpenMeteo.URL)
	cfg.QWeatherHost = strings.TrimSpace(fc.Providers.QWeather.Host)
	cfg.BreakerFailureThreshold = fc.Providers.CircuitBreaker.FailureThreshold
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerHalfOpenRequests = fc.Providers.CircuitBreaker.HalfOpenRequests
	if cfg.BreakerHalfOpenRequests == 0 {
		cfg.BreakerHalfOpenRequests = 1
	}
	cfg.BreakerOpenTimeout = parseDuration(fc.Providers.CircuitBreaker.OpenTimeout, 30*time.Second)

	cfg.QWeatherAPIKey = strings.TrimSpace(os.Getenv("QWEATHER_API_KEY"))
	if cfg.QWeatherAPIKey == "" {
		key, err := readSecrets(filepath.Join(dir, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.QWeatherAPIKey = key
	}

	cfg.ProxyURL = strings.TrimSpace(firstNonEmpty(os.Getenv("WEATHER_PROXY_URL"), fc.Proxy.URL))

	cfg.CacheBackend = normalize(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, BackendInMemory))
	cfg.FreshWindow = parseDuration(fc.Cache.FreshWindow, 5*time.Minute)
	cfg.MemcachedAddrs = strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211"))
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.SQLitePath = firstNonEmpty(fc.Cache.SQLite.Path, "weather_cache.db")
	cfg.DatabaseURL = strings.TrimSpace(firstNonEmpty(os.Getenv("DATABASE_URL"), fc.Cache.Postgres.URL))

	cfg.WarnInterval = parseDuration(fc.Resolver.WarnInterval, 60*time.Second)
	cfg.RefreshInterval = parseDuration(fc.Resolver.RefreshInterval, 5*time.Minute)
	langs := fc.Resolver.Languages
	if len(langs) == 0 {
		langs = []string{string(models.LangZH), string(models.LangEN)}
	}
	for _, l := range langs {
		cfg.Languages = append(cfg.Languages, models.Lang(normalize(l)))
	}
	cfg.DefaultLang = models.Lang(normalize(firstNonEmpty(fc.Resolver.DefaultLang, string(cfg.Languages[0]))))

	cfg.RequestTimeout = parseDuration(fc.Reliability.RequestTimeout, 45*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	cfg.DegradedWindow = parseDuration(fc.Reliability.DegradedWindow, 5*time.Minute)
	cfg.DegradedPct = fc.Reliability.DegradedPct
	if cfg.DegradedPct <= 0 {
		cfg.DegradedPct = 50
	}
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.QWeatherAPIKey), nil
}

// Providers returns the configured provider names, primary first.
func (c *Config) Providers() []string {
	if c.SecondaryProvider == "" {
		return []string{c.PrimaryProvider}
	}
	return []string{c.PrimaryProvider, c.SecondaryProvider}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if !knownProvider(cfg.PrimaryProvider) {
		return fmt.Errorf("providers.primary must be %s or %s, got %q", ProviderOpenMeteo, ProviderQWeather, cfg.PrimaryProvider)
	}
	if cfg.SecondaryProvider != "" {
		if !knownProvider(cfg.SecondaryProvider) {
			return fmt.Errorf("providers.secondary must be %s, %s or empty, got %q", ProviderOpenMeteo, ProviderQWeather, cfg.SecondaryProvider)
		}
		if cfg.SecondaryProvider == cfg.PrimaryProvider {
			return fmt.Errorf("providers.secondary must differ from providers.primary")
		}
	}
	if cfg.PrimaryProvider == ProviderQWeather && cfg.QWeatherAPIKey == "" {
		return fmt.Errorf("QWEATHER_API_KEY required when qweather is the primary provider (set env or config/secrets.yaml qweather_api_key)")
	}
	if cfg.SecondaryProvider == ProviderQWeather && cfg.QWeatherAPIKey == "" {
		// Without a key every fallback call would fail.
		cfg.SecondaryProvider = ""
	}
	for _, l := range cfg.Languages {
		if !l.Valid() {
			return fmt.Errorf("resolver.languages: unsupported language %q", l)
		}
	}
	if !cfg.DefaultLang.Valid() {
		return fmt.Errorf("resolver.default_lang: unsupported language %q", cfg.DefaultLang)
	}
	switch cfg.CacheBackend {
	case BackendInMemory, BackendMemcached, BackendSQLite:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL required for the postgres cache backend")
		}
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached, sqlite or postgres, got %q", cfg.CacheBackend)
	}
	if cfg.DegradedPct > 100 {
		return fmt.Errorf("reliability.degraded_pct must be at most 100, got %d", cfg.DegradedPct)
	}
	return nil
}

func knownProvider(p string) bool {
	return p == ProviderOpenMeteo || p == ProviderQWeather
}
