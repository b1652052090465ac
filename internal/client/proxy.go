package client

import (
	"context"

	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/validation"
)

// ProviderProxy names the proxy path in logs and metrics.
const ProviderProxy = "proxy"

// ProxyClient asks an intermediary (normally cmd/service) to resolve weather
// for a provider. The response must match the WeatherData shape exactly.
type ProxyClient struct {
	url      string
	provider string
	t        *transport
}

// NewProxyClient returns a client for the proxy at url that requests provider.
func NewProxyClient(url, provider string, opts Options) *ProxyClient {
	return &ProxyClient{url: url, provider: provider, t: newTransport(ProviderProxy, opts)}
}

// Name implements Provider.
func (c *ProxyClient) Name() string { return ProviderProxy }

// FetchCurrent implements Provider.
func (c *ProxyClient) FetchCurrent(ctx context.Context, lang models.Lang) (models.WeatherData, error) {
	body, err := c.t.get(ctx, c.url, map[string]string{
		"provider": c.provider,
		"lang":     string(lang),
	})
	if err != nil {
		return models.WeatherData{}, err
	}
	data, err := validation.DecodeWeatherData(body)
	if err != nil {
		return models.WeatherData{}, shapeError(ProviderProxy, err)
	}
	return data, nil
}
