package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/homepage-weather/internal/models"
	"github.com/kjstillabower/homepage-weather/internal/observability"
)

// Provider fetches current weather plus today's extremes from one upstream.
// Any failure is returned as a *FetchError.
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, lang models.Lang) (models.WeatherData, error)
}

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 12 * time.Second

const userAgent = "homepage-weather/1.0"

// Options configures the transport shared by all adapters.
type Options struct {
	Timeout time.Duration
	// Breaker, when set, wraps every call. Open state fails fast with ErrCircuitOpen.
	Breaker *gobreaker.CircuitBreaker
	Logger  *zap.Logger
}

// transport performs time-boxed GETs for one provider and records call metrics.
type transport struct {
	provider string
	http     *resty.Client
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
}

func newTransport(provider string, opts Options) *transport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Named("resty").Sugar())
	return &transport{
		provider: provider,
		http:     rc,
		timeout:  timeout,
		breaker:  opts.Breaker,
	}
}

// get issues GET endpoint?params and returns the body of a 2xx response.
func (t *transport) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	start := time.Now()
	body, err := t.execute(ctx, endpoint, params)
	status := "success"
	if err != nil {
		status = string(CategorizeError(err))
	}
	observability.ProviderCallsTotal.WithLabelValues(t.provider, status).Inc()
	observability.ProviderDuration.WithLabelValues(t.provider, status).Observe(time.Since(start).Seconds())
	return body, err
}

func (t *transport) execute(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if t.breaker == nil {
		return t.call(ctx, endpoint, params)
	}
	out, err := t.breaker.Execute(func() (interface{}, error) {
		return t.call(ctx, endpoint, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &FetchError{Provider: t.provider, Kind: ErrCircuitOpen, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (t *transport) call(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.http.R().
		SetContext(reqCtx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || reqCtx.Err() != nil {
			return nil, &FetchError{Provider: t.provider, Kind: ErrTimeout, Err: fmt.Errorf("aborted after %s: %w", t.timeout, err)}
		}
		return nil, &FetchError{Provider: t.provider, Kind: ErrNetwork, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &FetchError{Provider: t.provider, Kind: ErrHTTPStatus, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// round converts an upstream float to whole units, halves toward +Inf
// (-2.5 becomes -2, 2.5 becomes 3).
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
