package client

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/kjstillabower/homepage-weather/internal/conditions"
	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/validation"
)

// ProviderOpenMeteo is the provider name of the Open-Meteo adapter.
const ProviderOpenMeteo = "open-meteo"

// DefaultOpenMeteoURL is the public forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const (
	openMeteoCurrentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,is_day,weather_code,wind_speed_10m"
	openMeteoDailyFields   = "temperature_2m_max,temperature_2m_min"
)

// Site is the fixed coordinate the homepage reports on.
type Site struct {
	LocationKey string
	Latitude    float64
	Longitude   float64
	Timezone    string
}

// OpenMeteoClient fetches current conditions and today's extremes in a single call.
type OpenMeteoClient struct {
	url  string
	site Site
	t    *transport
}

// NewOpenMeteoClient returns an adapter for url (DefaultOpenMeteoURL when empty).
func NewOpenMeteoClient(url string, site Site, opts Options) *OpenMeteoClient {
	if url == "" {
		url = DefaultOpenMeteoURL
	}
	if site.Timezone == "" {
		site.Timezone = "auto"
	}
	return &OpenMeteoClient{url: url, site: site, t: newTransport(ProviderOpenMeteo, opts)}
}

// Name implements Provider.
func (c *OpenMeteoClient) Name() string { return ProviderOpenMeteo }

type openMeteoResponse struct {
	Current *struct {
		Temperature         *float64 `json:"temperature_2m" validate:"required"`
		Humidity            *float64 `json:"relative_humidity_2m" validate:"required,gte=0,lte=100"`
		ApparentTemperature *float64 `json:"apparent_temperature" validate:"required"`
		IsDay               *int     `json:"is_day" validate:"required,oneof=0 1"`
		WeatherCode         *int     `json:"weather_code" validate:"required"`
		WindSpeed           *float64 `json:"wind_speed_10m" validate:"required,gte=0"`
	} `json:"current" validate:"required"`
	Daily *struct {
		TempMax []float64 `json:"temperature_2m_max" validate:"required,min=1"`
		TempMin []float64 `json:"temperature_2m_min" validate:"required,min=1"`
	} `json:"daily" validate:"required"`
}

// FetchCurrent implements Provider. Open-Meteo has no localized text, so lang is unused.
func (c *OpenMeteoClient) FetchCurrent(ctx context.Context, _ models.Lang) (models.WeatherData, error) {
	body, err := c.t.get(ctx, c.url, map[string]string{
		"latitude":        formatCoord(c.site.Latitude),
		"longitude":       formatCoord(c.site.Longitude),
		"current":         openMeteoCurrentFields,
		"daily":           openMeteoDailyFields,
		"timezone":        c.site.Timezone,
		"forecast_days":   "1",
		"wind_speed_unit": "kmh",
	})
	if err != nil {
		return models.WeatherData{}, err
	}

	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.WeatherData{}, shapeError(ProviderOpenMeteo, err)
	}
	if err := validation.Struct(resp); err != nil {
		return models.WeatherData{}, shapeError(ProviderOpenMeteo, err)
	}
	return c.mapResponse(resp), nil
}

func (c *OpenMeteoClient) mapResponse(resp openMeteoResponse) models.WeatherData {
	cur := resp.Current
	isDay := *cur.IsDay == 1
	cond, icon := conditions.MapWMO(*cur.WeatherCode, isDay)
	return models.WeatherData{
		Temp:      round(*cur.Temperature),
		Condition: cond,
		IconCode:  icon,
		Location:  c.site.LocationKey,
		Humidity:  round(*cur.Humidity),
		WindSpeed: round(*cur.WindSpeed),
		FeelsLike: round(*cur.ApparentTemperature),
		MinTemp:   round(resp.Daily.TempMin[0]),
		MaxTemp:   round(resp.Daily.TempMax[0]),
		IsDay:     isDay,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
