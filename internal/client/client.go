// Package client talks to the career backend REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobprep/internal/config"
	"jobprep/internal/errors"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	maxResponseBytes = 10 << 20

	// HeaderRequestID carries a fresh uuid on every outgoing request.
	HeaderRequestID = "X-Request-ID"
)

// Messages for failures that never reached a backend reply.
const (
	MsgUnreachable = "서버에 연결할 수 없습니다."
	MsgTimeout     = "요청 시간이 초과되었습니다."
	MsgCircuitOpen = "서버가 일시적으로 응답하지 않습니다. 잠시 후 다시 시도해 주세요."
	MsgBadResponse = "서버 응답을 해석할 수 없습니다."
	MsgRequestFail = "요청 처리 중 오류가 발생했습니다."
)

// RequestRecorder receives one call per backend request.
type RequestRecorder interface {
	RecordAPIRequest(ctx context.Context, endpoint string, status int, elapsed time.Duration)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *Breaker
	limiter *rate.Limiter
	logger  *errors.Logger
	metrics RequestRecorder
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics sets the request recorder.
func WithMetrics(m RequestRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client from the api config section.
func New(cfg config.APIConfig, logger *errors.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: NewBreaker("backend", cfg.CircuitBreaker, logger),
		logger:  logger,
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(cfg.RateLimit.Burst, 1))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Stats reports breaker and limiter state.
func (c *Client) Stats() map[string]any {
	stats := map[string]any{
		"base_url":        c.baseURL,
		"circuit_breaker": c.breaker.Stats(),
		"healthy":         c.breaker.IsHealthy(),
	}
	if c.limiter != nil {
		stats["rate_limit"] = map[string]any{"limit": float64(c.limiter.Limit()), "burst": c.limiter.Burst()}
	}
	return stats
}

// Healthy reports whether the circuit breaker lets requests through.
func (c *Client) Healthy() bool {
	return c.breaker.IsHealthy()
}

type request struct {
	method      string
	path        string
	route       string // metrics label; path with ids templated out
	query       url.Values
	body        []byte
	contentType string
}

type rawResponse struct {
	status int
	body   []byte
}

type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d %s", e.status, http.StatusText(e.status))
}

func isClientStatus(err error) bool {
	var se *statusError
	return stderrors.As(err, &se) && se.status < http.StatusInternalServerError
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.status
	}
	if appErr, ok := errors.As(err); ok {
		if s, ok := appErr.Context["status"].(int); ok {
			return s
		}
	}
	return 0
}

func (r request) label() string {
	if r.route != "" {
		return r.route
	}
	return r.path
}

func jsonRequest(method, path string, in any) (request, error) {
	req := request{method: method, path: path}
	if in == nil {
		return req, nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return req, errors.NewInternalError(errors.ErrCodeInvalidInput, "요청 본문을 만들 수 없습니다.", err)
	}
	req.body, req.contentType = body, "application/json"
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, route string, in, out any) error {
	req, err := jsonRequest(method, path, in)
	if err != nil {
		return err
	}
	req.route = route
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, MsgTimeout, err).
				WithContext("endpoint", req.path)
		}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.send(ctx, req)
	})
	status := 0
	if resp != nil {
		status = resp.status
	}
	c.record(ctx, req.label(), status, time.Since(start))

	if err != nil {
		appErr := c.mapError(err).
			WithContext("endpoint", req.path).
			WithContext("method", req.method)
		c.logger.LogError(appErr, "Backend request failed")
		return appErr
	}

	c.logger.Debug("Backend request completed",
		"method", req.method,
		"endpoint", req.path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds())

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return errors.NewNetworkError(errors.ErrCodeInvalidFormat, MsgBadResponse, err).
			WithContext("endpoint", req.path)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req request) (*rawResponse, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	resp := &rawResponse{status: httpResp.StatusCode, body: data}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, &statusError{status: httpResp.StatusCode, body: data}
	}
	return resp, nil
}

func (c *Client) mapError(err error) *errors.AppError {
	var se *statusError
	switch {
	case stderrors.As(err, &se):
		return errors.NewNetworkError(errors.ErrCodeNetworkFailed, backendMessage(se.body), err).
			WithContext("status", se.status)
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewNetworkError(errors.ErrCodeCircuitOpen, MsgCircuitOpen, err)
	case stderrors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, MsgTimeout, err)
	default:
		return errors.NewNetworkError(errors.ErrCodeNetworkFailed, MsgUnreachable, err)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}

// backendMessage extracts {"error": ...} or {"detail": ...} from an error body.
func backendMessage(body []byte) string {
	var envelope struct {
		Error  any `json:"error"`
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		for _, v := range []any{envelope.Error, envelope.Detail} {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return MsgRequestFail
}

func (c *Client) record(ctx context.Context, endpoint string, status int, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(ctx, endpoint, status, elapsed)
	}
}
