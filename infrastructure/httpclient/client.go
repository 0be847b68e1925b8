// Package httpclient implements the HTTP clients the routing and node layers
// use to talk to each other: mutations to writers, queries to readers, event
// batches to the cache and replication streams between writers. Every client
// shares one pooled transport and a per-host trip switch; a tripped host is
// answered locally with ServiceUnavailable, which the router treats as a
// routing error and refreshes its shard configuration.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "appaccess-backend/pkg/errors"
)

// Config tunes the shared client.
type Config struct {
	// Timeout bounds one request round trip.
	Timeout time.Duration
	// BreakerFailureThreshold is the failure ratio that trips a host.
	BreakerFailureThreshold float64
	// BreakerMinRequests is the sample size required before tripping.
	BreakerMinRequests uint32
	// BreakerTimeout is how long a tripped host stays blocked.
	BreakerTimeout time.Duration
}

// DefaultConfig returns the client settings the nodes start with.
func DefaultConfig() Config {
	return Config{
		Timeout:                 10 * time.Second,
		BreakerFailureThreshold: 0.6,
		BreakerMinRequests:      5,
		BreakerTimeout:          30 * time.Second,
	}
}

// Client is the shared HTTP transport with per-host trip switches.
type Client struct {
	http     *http.Client
	cfg      Config
	logger   *zap.Logger
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a client with a pooled transport.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    host,
		Timeout: c.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= c.cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("host trip switch state changed",
				zap.String("host", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	c.breakers[host] = cb
	return cb
}

type response struct {
	status int
	body   []byte
}

// do runs one request. body, when non-nil, is JSON encoded; a 2xx response
// body is decoded into out when out is non-nil. Non-2xx responses become the
// error their envelope describes; transport failures and tripped hosts become
// ServiceUnavailable.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewInvalidArgument("url", fmt.Sprintf("invalid URL %q", rawURL))
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return apperrors.NewInternal("encoding request body", err)
		}
	}

	result, err := c.breaker(parsed.Host).Execute(func() (any, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		// 5xx responses count against the trip switch; 4xx responses are
		// well-formed rejections and do not.
		if resp.StatusCode >= http.StatusInternalServerError {
			return response{status: resp.StatusCode, body: data}, errServerFailure
		}
		return response{status: resp.StatusCode, body: data}, nil
	})

	if err != nil && !errors.Is(err, errServerFailure) {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperrors.NewServiceUnavailable(fmt.Sprintf("host %s is tripped", parsed.Host))
		}
		return apperrors.NewServiceUnavailable(fmt.Sprintf("request to %s failed: %v", parsed.Host, err))
	}

	resp := result.(response)
	if resp.status >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return apperrors.NewInternal("decoding response body", err)
		}
	}
	return nil
}

// errServerFailure marks a 5xx response for the trip switch while still
// carrying the envelope back to the caller.
var errServerFailure = errors.New("server failure")

func decodeError(resp response) error {
	var envelope apperrors.ErrorResponse
	if err := json.Unmarshal(resp.body, &envelope); err == nil && envelope.Error != nil {
		return apperrors.FromResponse(&envelope)
	}
	if resp.status == http.StatusServiceUnavailable {
		return apperrors.NewServiceUnavailable("downstream service unavailable")
	}
	return apperrors.NewInternal(fmt.Sprintf("unexpected status %d", resp.status), nil)
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
