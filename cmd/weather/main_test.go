package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjstillabower/homepage-weather/internal/testhelpers"
)

func writeConfig(t *testing.T, openMeteoURL string) string {
	t.Helper()
	for _, k := range []string{"ENV_NAME", "QWEATHER_API_KEY", "WEATHER_PROXY_URL", "CACHE_BACKEND", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "log:\n  level: ERROR\nproviders:\n  primary: open-meteo\n  timeout: 2s\n  open_meteo:\n    url: " + openMeteoURL + "\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "dev.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRun_PrintsWeather(t *testing.T) {
	om := testhelpers.OpenMeteo(t, testhelpers.OpenMeteoPayload(21.6, 61, true, 24, 18))
	dir := writeConfig(t, om.URL)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", dir, "-lang", "en"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}
	var got output
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output not JSON: %v\n%s", err, stdout.String())
	}
	if got.Temp != 22 || got.Text != "Light Rain" {
		t.Errorf("output = %+v", got)
	}
}

func TestRun_Unavailable(t *testing.T) {
	om := testhelpers.OpenMeteo(t, nil)
	om.FailWith(503)
	dir := writeConfig(t, om.URL)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", dir}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if strings.TrimSpace(stdout.String()) != "unavailable" {
		t.Errorf("stdout = %q, want unavailable", stdout.String())
	}
}

func TestRun_BadFlags(t *testing.T) {
	om := testhelpers.OpenMeteo(t, nil)
	dir := writeConfig(t, om.URL)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope"}},
		{"bad lang", []string{"-config", dir, "-lang", "fr"}},
		{"disabled provider", []string{"-config", dir, "-provider", "qweather"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 2 {
				t.Errorf("run(%v) = %d, want 2", tt.args, code)
			}
		})
	}
	if om.Hits() != 0 {
		t.Errorf("upstream hits = %d, want 0", om.Hits())
	}
}

func TestRun_MissingConfig(t *testing.T) {
	t.Setenv("ENV_NAME", "")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", t.TempDir()}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "config file not found") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
