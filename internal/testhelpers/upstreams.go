// Package testhelpers provides fake weather upstreams and wiring shared by
// package tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Upstream is a fake provider endpoint that counts hits and can be switched
// between serving and failing.
type Upstream struct {
	*httptest.Server
	hits   atomic.Int64
	status atomic.Int64 // 0 serves the payload
}

// Hits returns the number of requests received.
func (u *Upstream) Hits() int64 { return u.hits.Load() }

// FailWith makes every following request answer with status. 0 restores the payload.
func (u *Upstream) FailWith(status int) { u.status.Store(int64(status)) }

func newUpstream(t *testing.T, routes map[string]interface{}) *Upstream {
	t.Helper()
	u := &Upstream{}
	mux := http.NewServeMux()
	for path, payload := range routes {
		payload := payload
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			u.hits.Add(1)
			if s := u.status.Load(); s != 0 {
				w.WriteHeader(int(s))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(payload)
		})
	}
	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

// OpenMeteoPayload is an Open-Meteo forecast body with current and daily blocks.
func OpenMeteoPayload(temp float64, code int, isDay bool, maxTemp, minTemp float64) map[string]interface{} {
	day := 0
	if isDay {
		day = 1
	}
	return map[string]interface{}{
		"current": map[string]interface{}{
			"temperature_2m":       temp,
			"weather_code":         code,
			"is_day":               day,
			"relative_humidity_2m": 70,
			"apparent_temperature": temp - 0.7,
			"wind_speed_10m":       11.4,
		},
		"daily": map[string]interface{}{
			"temperature_2m_max": []float64{maxTemp},
			"temperature_2m_min": []float64{minTemp},
		},
	}
}

// OpenMeteo starts a fake Open-Meteo server. Point the client at its URL.
func OpenMeteo(t *testing.T, payload map[string]interface{}) *Upstream {
	return newUpstream(t, map[string]interface{}{"/": payload})
}

// QWeather starts a fake QWeather host serving /v7/weather/now and /v7/weather/3d.
// Point the client at its URL as the host.
func QWeather(t *testing.T, temp, icon string) *Upstream {
	return newUpstream(t, map[string]interface{}{
		"/v7/weather/now": map[string]interface{}{
			"code": "200",
			"now": map[string]interface{}{
				"temp": temp, "feelsLike": temp, "icon": icon,
				"humidity": "55", "windSpeed": "9",
			},
		},
		"/v7/weather/3d": map[string]interface{}{
			"code":  "200",
			"daily": []map[string]interface{}{{"tempMax": "25", "tempMin": "15"}},
		},
	})
}
