// Package fyers provides the resilient gateway to the FYERS v3 REST API.
//
// Every outbound call passes through sliding-window rate limiting, a
// windowed circuit breaker, bounded retry with jittered exponential
// backoff, and a one-shot token-refresh-and-replay on authorization
// failure. The risk engine depends on this layer surfacing bounded,
// classified failures instead of raw transport errors.
package fyers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fyers-orb-bot/internal/config"
	apperrors "fyers-orb-bot/internal/errors"
	"fyers-orb-bot/internal/logging"
	"fyers-orb-bot/internal/metrics"
)

// retryableStatuses is the set of HTTP statuses worth retrying.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// TokenSource supplies the current access token and supports a
// mutually-exclusive refresh. Implemented by the auth service.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Client is the rate-limited FYERS gateway.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	limiter    *RateLimiter
	circuit    *CircuitBreaker
	logger     zerolog.Logger

	appID      string
	tradingURL string
	dataURL    string
	dataWSURL  string

	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewClient creates a gateway from the application configuration.
func NewClient(cfg config.APIConfig, appID string, tokens TokenSource, logger zerolog.Logger) *Client {
	breakerCfg := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breakerCfg = CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			FailureWindow:    time.Duration(cfg.FailureWindowSeconds) * time.Second,
			Pause:            time.Duration(cfg.PauseSeconds) * time.Second,
		}
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		tokens:      tokens,
		limiter:     NewRateLimiter(cfg.RatePerSecond, cfg.RatePerMinute),
		circuit:     NewCircuitBreaker(breakerCfg),
		logger:      logger.With().Str("component", "fyers").Logger(),
		appID:       appID,
		tradingURL:  cfg.TradingURL,
		dataURL:     cfg.DataURL,
		dataWSURL:   cfg.DataWSURL,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
	}
}

// DataWSURL returns the websocket endpoint for the market-data feed.
func (c *Client) DataWSURL() string {
	return c.dataWSURL
}

// AuthHeader returns the FYERS authorization header value.
func (c *Client) AuthHeader() (string, error) {
	token := c.tokens.AccessToken()
	if token == "" {
		return "", apperrors.ErrNotAuthenticated
	}
	return fmt.Sprintf("%s:%s", c.appID, token), nil
}

// IsTradingPaused reports whether the circuit breaker is open.
func (c *Client) IsTradingPaused() bool {
	return c.circuit.IsOpen()
}

// PauseRemaining returns how long until the circuit closes.
func (c *Client) PauseRemaining() time.Duration {
	return c.circuit.Remaining()
}

// ResetCircuit closes the circuit breaker manually.
func (c *Client) ResetCircuit() {
	c.circuit.Reset()
	c.logger.Info().Msg("Circuit breaker reset manually")
}

// Request performs one protected request with finite retries and
// circuit breaker checks.
//
// Recovery behaviors:
//   - 401 triggers one token refresh then request replay.
//   - retryable statuses and transport errors get exponential backoff
//     with jitter, up to maxRetries.
//   - non-JSON bodies are normalized into an error payload.
func (c *Client) Request(ctx context.Context, method, endpoint string, params url.Values, body interface{}) (Payload, error) {
	if c.circuit.IsOpen() {
		remaining := int(c.circuit.Remaining().Seconds())
		metrics.APIRequests.WithLabelValues(endpoint, "rejected").Inc()
		return nil, &apperrors.CircuitOpenError{RemainingSeconds: remaining}
	}

	reqURL := fmt.Sprintf("%s/%s", c.resolveBaseURL(endpoint), strings.TrimPrefix(endpoint, "/"))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, "encoding request body")
		}
	}

	start := time.Now()
	var lastErr error
	refreshAttempted := false

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		status, payload, err := c.do(ctx, method, reqURL, bodyBytes)
		if err != nil {
			c.circuit.RecordFailure()
			lastErr = err
			metrics.APIRequests.WithLabelValues(endpoint, "retry").Inc()
			c.logger.Warn().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("HTTP transport error")
			if attempt < c.maxRetries {
				if werr := c.sleepBackoff(ctx, attempt); werr != nil {
					return nil, werr
				}
				continue
			}
			break
		}

		if status == http.StatusUnauthorized {
			if refreshAttempted {
				c.circuit.RecordFailure()
				metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
				return nil, apperrors.NewAPIError(status, payload.Code(),
					payload.Message("unauthorized after token refresh"), apperrors.ErrRefreshFailed)
			}
			refreshAttempted = true
			if rerr := c.tokens.Refresh(ctx); rerr != nil {
				c.circuit.RecordFailure()
				metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
				return nil, apperrors.NewAPIError(status, payload.Code(), "token refresh failed", rerr)
			}
			c.logger.Info().Msg("Access token refreshed after 401")
			continue // replay the same request once
		}

		if retryableStatuses[status] && attempt < c.maxRetries {
			c.circuit.RecordFailure()
			metrics.APIRequests.WithLabelValues(endpoint, "retry").Inc()
			lastErr = apperrors.NewAPIError(status, payload.Code(), payload.Message("retryable status"), nil)
			c.logger.Warn().
				Int("status", status).
				Int("attempt", attempt+1).
				Int("max_retries", c.maxRetries).
				Str("endpoint", endpoint).
				Msg("Retrying request")
			if werr := c.sleepBackoff(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		if status >= 400 || payload.IsErrorMarker() {
			c.circuit.RecordFailure()
			metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
			return nil, apperrors.NewAPIError(status, payload.Code(),
				payload.Message(fmt.Sprintf("FYERS error status=%d", status)), nil)
		}

		c.circuit.RecordSuccess()
		metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
		logging.LogAPICall(c.logger, method, endpoint, time.Since(start), nil)
		return payload, nil
	}

	if lastErr == nil {
		lastErr = apperrors.NewAPIError(0, 0, "request failed after retries", nil)
	}
	return nil, lastErr
}

// do performs a single HTTP attempt. Rate limiting happens per attempt
// so retries also respect the window caps.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte) (int, Payload, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, nil, &apperrors.TransportError{Op: "rate limit wait", Err: err}
	}

	authHeader, err := c.AuthHeader()
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), reqURL, reader)
	if err != nil {
		return 0, nil, &apperrors.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &apperrors.TransportError{Op: "http request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, &apperrors.TransportError{Op: "read body", Err: err}
	}

	return resp.StatusCode, decodePayload(raw, resp.StatusCode), nil
}

// sleepBackoff waits min(maxBackoff, base*2^attempt) plus up to 20%
// jitter, without blocking other goroutines.
func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(c.baseBackoff) * math.Pow(2, float64(attempt)))
	if delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	delay += time.Duration(rand.Float64() * 0.2 * float64(delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
