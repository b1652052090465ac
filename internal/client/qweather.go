package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kjstillabower/homepage-weather/internal/conditions"
	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/validation"
)

// ProviderQWeather is the provider name of the QWeather adapter.
const ProviderQWeather = "qweather"

// DefaultQWeatherHost is the free-tier API host.
const DefaultQWeatherHost = "https://devapi.qweather.com"

const qweatherOK = "200"

// QWeatherClient needs two calls: /v7/weather/now for current conditions and
// /v7/weather/3d for today's extremes. Both must succeed.
type QWeatherClient struct {
	host   string
	apiKey string
	site   Site
	t      *transport
}

// NewQWeatherClient returns an adapter for host (DefaultQWeatherHost when empty).
func NewQWeatherClient(host, apiKey string, site Site, opts Options) *QWeatherClient {
	if host == "" {
		host = DefaultQWeatherHost
	}
	return &QWeatherClient{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		site:   site,
		t:      newTransport(ProviderQWeather, opts),
	}
}

// Name implements Provider.
func (c *QWeatherClient) Name() string { return ProviderQWeather }

// QWeather encodes every number as a JSON string.
type qweatherNowResponse struct {
	Code *string `json:"code" validate:"required"`
	Now  *struct {
		Temp      *string `json:"temp" validate:"required,numeric"`
		FeelsLike *string `json:"feelsLike" validate:"required,numeric"`
		Icon      *string `json:"icon" validate:"required,number"`
		Humidity  *string `json:"humidity" validate:"required,numeric"`
		WindSpeed *string `json:"windSpeed" validate:"required,numeric"`
	} `json:"now" validate:"required"`
}

type qweatherDailyResponse struct {
	Code  *string `json:"code" validate:"required"`
	Daily []struct {
		TempMax *string `json:"tempMax" validate:"required,numeric"`
		TempMin *string `json:"tempMin" validate:"required,numeric"`
	} `json:"daily" validate:"required,min=1,dive"`
}

// FetchCurrent implements Provider.
func (c *QWeatherClient) FetchCurrent(ctx context.Context, lang models.Lang) (models.WeatherData, error) {
	params := map[string]string{
		"location": formatCoord(c.site.Longitude) + "," + formatCoord(c.site.Latitude),
		"lang":     string(lang),
		"unit":     "m",
		"key":      c.apiKey,
	}

	var now qweatherNowResponse
	if err := c.getJSON(ctx, "/v7/weather/now", params, &now, func() *string { return now.Code }); err != nil {
		return models.WeatherData{}, err
	}
	var daily qweatherDailyResponse
	if err := c.getJSON(ctx, "/v7/weather/3d", params, &daily, func() *string { return daily.Code }); err != nil {
		return models.WeatherData{}, err
	}
	return c.mapResponse(now, daily)
}

// getJSON fetches path, decodes into out, validates its shape and checks the
// in-body status code.
func (c *QWeatherClient) getJSON(ctx context.Context, path string, params map[string]string, out any, code func() *string) error {
	body, err := c.t.get(ctx, c.host+path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return shapeError(ProviderQWeather, err)
	}
	// An error response carries only "code", so check it before the shape.
	if cd := code(); cd != nil && *cd != qweatherOK {
		return &FetchError{Provider: ProviderQWeather, Kind: ErrHTTPStatus, Err: fmt.Errorf("%s: api code %s", path, *cd)}
	}
	if err := validation.Struct(out); err != nil {
		return shapeError(ProviderQWeather, err)
	}
	return nil
}

func (c *QWeatherClient) mapResponse(now qweatherNowResponse, daily qweatherDailyResponse) (models.WeatherData, error) {
	var p numParser
	temp := p.float(now.Now.Temp)
	feelsLike := p.float(now.Now.FeelsLike)
	humidity := p.float(now.Now.Humidity)
	wind := p.float(now.Now.WindSpeed)
	icon := p.int(now.Now.Icon)
	maxTemp := p.float(daily.Daily[0].TempMax)
	minTemp := p.float(daily.Daily[0].TempMin)
	if p.err != nil {
		return models.WeatherData{}, shapeError(ProviderQWeather, p.err)
	}

	cond, iconCode, isDay := conditions.MapQWeather(icon)
	return models.WeatherData{
		Temp:      round(temp),
		Condition: cond,
		IconCode:  iconCode,
		Location:  c.site.LocationKey,
		Humidity:  round(humidity),
		WindSpeed: round(wind),
		FeelsLike: round(feelsLike),
		MinTemp:   round(minTemp),
		MaxTemp:   round(maxTemp),
		IsDay:     isDay,
	}, nil
}

// numParser keeps the first parse error so a sequence of fields can be read
// without checking each one.
type numParser struct {
	err error
}

func (p *numParser) float(s *string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		p.err = err
	}
	return v
}

func (p *numParser) int(s *string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(*s)
	if err != nil {
		p.err = err
	}
	return v
}
