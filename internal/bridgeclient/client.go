// Package bridgeclient talks to a running engine bridge over HTTP and the
// websocket envelope protocol.
package bridgeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// APIError is a non-2xx answer from the bridge.
type APIError struct {
	Status int
	Body   bridgedto.Error
}

// Retryable reports whether the bridge marked the failure as transient.
func (e *APIError) Retryable() bool { return e.Body.Retryable }

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge api error: status=%d code=%s message=%s", e.Status, e.Body.Code, truncate(e.Body.Message, 512))
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Capabilities(ctx context.Context) (*bridgedto.Capabilities, error) {
	var out bridgedto.Capabilities
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/v1/capabilities", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetStrength(ctx context.Context, rating int) (*bridgedto.Strength, error) {
	var out bridgedto.Strength
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/v1/strength", bridgedto.StrengthRequest{Rating: rating}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze is not retried: a timed-out search may still have moved the
// engine's strength or cache state.
func (c *Client) Analyze(ctx context.Context, req bridgedto.AnalyzeRequest) (*bridgedto.AnalyzeResponse, error) {
	var out bridgedto.AnalyzeResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/v1/analyze", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Review(ctx context.Context, req bridgedto.ReviewRequest) (*bridgedto.ReviewResponse, error) {
	var out bridgedto.ReviewResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/v1/review", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReview(ctx context.Context, id string) (*bridgedto.ReviewResponse, error) {
	var out bridgedto.ReviewResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/v1/reviews/"+url.PathEscape(id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Opening(ctx context.Context, fen string) (*bridgedto.OpeningResponse, error) {
	var out bridgedto.OpeningResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/v1/opening?fen="+url.QueryEscape(fen), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Quit(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/v1/quit", nil, nil, false)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if err := json.Unmarshal(body, &e.Body); err != nil || e.Body.Code == "" {
		e.Body = bridgedto.Error{Code: bridgedto.CodeInternal, Message: string(body)}
	}
	return e
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
