package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/homepage-weather/internal/models"
)

var envVars = []string{
	"ENV_NAME", "SERVER_PORT", "LOG_LEVEL", "QWEATHER_API_KEY", "WEATHER_PROXY_URL",
	"CACHE_BACKEND", "MEMCACHED_ADDRS", "DATABASE_URL",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

const minimalEnvYAML = `
server:
  port: "8081"
location:
  key: "beijing"
  latitude: 39.9042
  longitude: 116.4074
  timezone: "Asia/Shanghai"
providers:
  primary: "open-meteo"
  secondary: "qweather"
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "dev.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile secrets: %v", err)
	}
}

func loadYAML(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	writeEnvFile(t, dir, yaml)
	return LoadFrom(dir)
}

// TestLoad_Defaults verifies the documented defaults for an almost empty file.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadYAML(t, "server:\n  port: \"\"\n")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"ServerPort", cfg.ServerPort, "8080"},
		{"PrimaryProvider", cfg.PrimaryProvider, ProviderOpenMeteo},
		{"SecondaryProvider", cfg.SecondaryProvider, ""},
		{"ProviderTimeout", cfg.ProviderTimeout, 12 * time.Second},
		{"FreshWindow", cfg.FreshWindow, 5 * time.Minute},
		{"WarnInterval", cfg.WarnInterval, 60 * time.Second},
		{"RefreshInterval", cfg.RefreshInterval, 5 * time.Minute},
		{"CacheBackend", cfg.CacheBackend, BackendInMemory},
		{"DefaultLang", cfg.DefaultLang, models.LangZH},
		{"Timezone", cfg.Timezone, "auto"},
		{"BreakerFailureThreshold", cfg.BreakerFailureThreshold, uint32(5)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if len(cfg.Languages) != 2 || cfg.Languages[0] != models.LangZH || cfg.Languages[1] != models.LangEN {
		t.Errorf("Languages = %v, want [zh en]", cfg.Languages)
	}
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("QWEATHER_API_KEY", "k")
	cfg, err := loadYAML(t, minimalEnvYAML)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ServerPort != "8081" || cfg.Timezone != "Asia/Shanghai" || cfg.Latitude != 39.9042 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if got := cfg.Providers(); len(got) != 2 || got[0] != ProviderOpenMeteo || got[1] != ProviderQWeather {
		t.Errorf("Providers() = %v", got)
	}
}

func TestLoad_SecretsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "providers:\n  primary: qweather\n")
	writeSecretsFile(t, dir, "qweather_api_key: key-from-secrets-file\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.QWeatherAPIKey != "key-from-secrets-file" {
		t.Errorf("QWeatherAPIKey = %q, want key from secrets file", cfg.QWeatherAPIKey)
	}
}

func TestLoad_QWeatherPrimaryRequiresKey(t *testing.T) {
	clearEnv(t)
	_, err := loadYAML(t, "providers:\n  primary: qweather\n")
	if err == nil || !strings.Contains(err.Error(), "QWEATHER_API_KEY") {
		t.Errorf("LoadFrom() error = %v, want QWEATHER_API_KEY message", err)
	}
}

// TestLoad_SecondaryWithoutKeyDisabled verifies that a keyless qweather
// fallback is dropped rather than failing on every call.
func TestLoad_SecondaryWithoutKeyDisabled(t *testing.T) {
	clearEnv(t)
	cfg, err := loadYAML(t, minimalEnvYAML)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.SecondaryProvider != "" {
		t.Errorf("SecondaryProvider = %q, want empty", cfg.SecondaryProvider)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("WEATHER_PROXY_URL", "http://proxy.local/weather")
	t.Setenv("CACHE_BACKEND", "Memcached")
	t.Setenv("MEMCACHED_ADDRS", "mc1:11211,mc2:11211")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := loadYAML(t, minimalEnvYAML)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ServerPort != "9999" || cfg.ProxyURL != "http://proxy.local/weather" ||
		cfg.CacheBackend != BackendMemcached || cfg.MemcachedAddrs != "mc1:11211,mc2:11211" || cfg.LogLevel != "debug" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WEATHER_PROXY_URL=http://from-dotenv/weather\n"), 0o644); err != nil {
		t.Fatalf("WriteFile .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("WEATHER_PROXY_URL") })

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ProxyURL != "http://from-dotenv/weather" {
		t.Errorf("ProxyURL = %q, want value from .env", cfg.ProxyURL)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV_NAME", "nonexistent")
	cfg, err := LoadFrom(t.TempDir())
	if err == nil || cfg != nil {
		t.Fatalf("LoadFrom() = %v, %v; want error", cfg, err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("LoadFrom() error = %v, want not found", err)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	cfg, err := loadYAML(t, "cache:\n  fresh_window: \"soon\"\nproviders:\n  timeout: \"-3s\"\n")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.FreshWindow != 5*time.Minute || cfg.ProviderTimeout != 12*time.Second {
		t.Errorf("FreshWindow = %v, ProviderTimeout = %v; want defaults", cfg.FreshWindow, cfg.ProviderTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown primary", "providers:\n  primary: darksky\n", "providers.primary"},
		{"unknown secondary", "providers:\n  secondary: darksky\n", "providers.secondary"},
		{"same secondary", "providers:\n  secondary: open-meteo\n", "must differ"},
		{"bad language", "resolver:\n  languages: [zh, fr]\n", "unsupported language"},
		{"bad default language", "resolver:\n  default_lang: de\n", "default_lang"},
		{"bad backend", "cache:\n  backend: redis\n", "cache.backend"},
		{"postgres without url", "cache:\n  backend: postgres\n", "DATABASE_URL"},
		{"degraded pct", "reliability:\n  degraded_pct: 150\n", "degraded_pct"},
		{"invalid yaml", "server: [unclosed\n", "parse config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := loadYAML(t, tt.yaml)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFrom() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_InvalidSecretsYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	writeSecretsFile(t, dir, "qweather_api_key: [unclosed\n")
	if _, err := LoadFrom(dir); err == nil || !strings.Contains(err.Error(), "secrets") {
		t.Errorf("LoadFrom() error = %v, want secrets parse error", err)
	}
}
