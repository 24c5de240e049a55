package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-notifier/internal/metrics"
	"github.com/i474232898/weather-notifier/internal/weather"
)

// BackoffConfig controls the in-call exponential backoff.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

func defaultHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// doRequestWithResilience executes the request with up to MaxRetries retries
// under exponential backoff, each attempt going through the circuit breaker.
// Every returned error is a *weather.FetchError. 429 and 5xx are retried;
// other non-2xx are not.
func doRequestWithResilience(
	ctx context.Context,
	provider, endpoint string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, weather.NewFetchError(provider, weather.FetchConfig, 0, errNoHTTPClient)
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, weather.NewFetchError(provider, weather.FetchConfig, 0, errInvalidConfig)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.Backoff.InitialInterval
	if cfg.Backoff.MaxInterval > 0 {
		bo.MaxInterval = cfg.Backoff.MaxInterval
	}
	// Attempts are bounded by MaxRetries, not by elapsed time.
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.Backoff.MaxRetries)), ctx)

	var resp *http.Response
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(weather.NewFetchError(provider, weather.FetchNetwork, 0, err))
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return backoff.Permanent(weather.NewFetchError(provider, weather.FetchConfig, 0, err))
		}

		start := time.Now()
		result, err := cb.Execute(func() (interface{}, error) {
			r, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, weather.NewFetchError(provider, weather.FetchNetwork, 0, execErr)
			}

			if r.StatusCode < 200 || r.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(r.Body, 512))
				r.Body.Close()

				kind := weather.FetchStatus
				if r.StatusCode == http.StatusTooManyRequests {
					kind = weather.FetchRateLimited
				}
				return nil, weather.NewFetchError(provider, kind, r.StatusCode, fmt.Errorf("%s", body))
			}

			return r, nil
		})
		metrics.ProviderLatency.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.ProviderCallsTotal.WithLabelValues(provider, endpoint, "ok").Inc()
			r, ok := result.(*http.Response)
			if !ok {
				return backoff.Permanent(weather.NewFetchError(provider, weather.FetchDecode, 0,
					fmt.Errorf("unexpected result type from circuit breaker")))
			}
			resp = r
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ProviderCallsTotal.WithLabelValues(provider, endpoint, "circuit_open").Inc()
			return backoff.Permanent(weather.NewFetchError(provider, weather.FetchCircuitOpen, 0, err))
		}

		var fe *weather.FetchError
		if !errors.As(err, &fe) {
			fe = weather.NewFetchError(provider, weather.FetchNetwork, 0, err)
		}
		metrics.ProviderCallsTotal.WithLabelValues(provider, endpoint, statusLabel(fe)).Inc()

		if !retryable(fe) {
			return backoff.Permanent(fe)
		}
		return fe
	}

	if err := backoff.Retry(operation, policy); err != nil {
		var fe *weather.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		// Cancellation while waiting between attempts.
		return nil, weather.NewFetchError(provider, weather.FetchNetwork, 0, err)
	}
	return resp, nil
}

func retryable(fe *weather.FetchError) bool {
	switch fe.Kind {
	case weather.FetchNetwork, weather.FetchRateLimited:
		return true
	case weather.FetchStatus:
		return fe.StatusCode >= 500
	default:
		return false
	}
}

func statusLabel(fe *weather.FetchError) string {
	if fe.StatusCode > 0 {
		return strconv.Itoa(fe.StatusCode)
	}
	return string(fe.Kind)
}

// decodeJSON decodes and closes the response body.
func decodeJSON(provider string, resp *http.Response, dst interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return weather.NewFetchError(provider, weather.FetchDecode, 0, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
