package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjstillabower/homepage-weather/internal/models"
)

func TestProxyClient_FetchCurrent(t *testing.T) {
	data := models.WeatherData{
		Temp: 5, Condition: models.ConditionHaze, IconCode: 502, Location: "beijing",
		Humidity: 40, WindSpeed: 3, FeelsLike: 2, MinTemp: -1, MaxTemp: 8, IsDay: false,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("provider") != "qweather" || r.URL.Query().Get("lang") != "en" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		jsonHandler(t, data)(w, r)
	}))
	defer server.Close()

	c := NewProxyClient(server.URL+"/weather", "qweather", Options{Timeout: 2 * time.Second})
	got, err := c.FetchCurrent(context.Background(), models.LangEN)
	if err != nil {
		t.Fatalf("FetchCurrent() error = %v", err)
	}
	if got != data {
		t.Errorf("FetchCurrent() = %+v, want %+v", got, data)
	}
}

func TestProxyClient_FetchCurrent_RejectsPartialShape(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]interface{}{"temp": 5, "condition": "Haze"}))
	defer server.Close()

	c := NewProxyClient(server.URL, "open-meteo", Options{})
	_, err := c.FetchCurrent(context.Background(), models.LangZH)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("FetchCurrent() error = %v, want ErrShapeMismatch", err)
	}
}
