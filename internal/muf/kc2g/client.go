// Package kc2g fetches the prop.kc2g.com ionosonde station feed.
package kc2g

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/koalabang/MUFCR6K2025/internal/muf"
)

const DefaultURL = "https://prop.kc2g.com/api/stations.json"

var (
	// ErrFetchExhausted signals that every attempt of one logical fetch
	// failed. Callers treat it as "no update this cycle".
	ErrFetchExhausted = errors.New("station feed fetch exhausted all attempts")

	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Config controls the retry budget of a single logical fetch.
type Config struct {
	URL         string
	MaxAttempts int
	// RetryDelays is indexed by completed attempt; when attempts outrun
	// the schedule the last delay is reused.
	RetryDelays []time.Duration
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:         DefaultURL,
		MaxAttempts: 3,
		RetryDelays: []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
		Timeout:     5 * time.Second,
	}
}

// Client performs resilient fetches of the upstream station list.
type Client struct {
	cfg     Config
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zap.Logger

	// sleep is swapped out in tests to avoid wall-clock waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(client *http.Client, cfg Config, log *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kc2g",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		cfg:     cfg,
		client:  client,
		circuit: cb,
		log:     log,
		sleep:   sleepCtx,
	}
}

// Fetch performs one logical fetch: up to MaxAttempts GETs with the
// configured delay schedule in between. A response is parsed whole or
// rejected whole; there is no partial acceptance.
func (c *Client) Fetch(ctx context.Context) ([]muf.StationRecord, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		records, err := c.attempt(ctx)
		if err == nil {
			c.log.Info("station feed fetched",
				zap.Int("attempt", attempt),
				zap.Int("records", len(records)))
			return records, nil
		}

		// An open circuit means the upstream is already known bad;
		// retrying inside this cycle would only burn the budget.
		if errors.Is(err, errCircuitOpen) {
			c.log.Warn("station feed circuit open", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrFetchExhausted, err)
		}

		lastErr = err
		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.retryDelay(attempt)
		c.log.Warn("station feed attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.log.Error("station feed unavailable",
		zap.Int("attempts", c.cfg.MaxAttempts),
		zap.Error(lastErr))
	return nil, fmt.Errorf("%w: %v", ErrFetchExhausted, lastErr)
}

// attempt issues one GET with the per-attempt timeout and decodes the body.
func (c *Client) attempt(ctx context.Context) ([]muf.StationRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.cfg.URL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		var records []muf.StationRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("malformed station feed: %w", err)
		}
		return records, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	return result.([]muf.StationRecord), nil
}

// retryDelay returns the delay after the given 1-based attempt.
func (c *Client) retryDelay(attempt int) time.Duration {
	if len(c.cfg.RetryDelays) == 0 {
		return time.Second
	}
	idx := attempt - 1
	if idx >= len(c.cfg.RetryDelays) {
		idx = len(c.cfg.RetryDelays) - 1
	}
	return c.cfg.RetryDelays[idx]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
