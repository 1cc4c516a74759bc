package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/resilience"
)

// Client sends HTTP requests, optionally through a shared resilience pipeline.
// A single Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	pipeline   atomic.Pointer[resilience.Pipeline[*Response]]
	metrics    *observability.Metrics
	log        *logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithPipeline routes every call through p. Each attempt inside the pipeline
// is one HTTP round trip.
func WithPipeline(p *resilience.Pipeline[*Response]) Option {
	return func(c *Client) { c.pipeline.Store(p) }
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log.WithComponent("httpclient") }
}

// WithMetrics records every attempt on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do executes req. With a pipeline configured the request passes every
// policy; the last attempt's error is returned when retries are exhausted.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewRequestError(fmt.Sprintf("encode body: %v", err))
	}

	attempt := func(ctx context.Context) (*Response, error) {
		return c.doOnce(ctx, req, body, contentType)
	}
	p := c.pipeline.Load()
	if p == nil {
		return attempt(ctx)
	}
	return p.Execute(ctx, attempt)
}

// Execute sends a request to an absolute URL.
func (c *Client) Execute(ctx context.Context, method string, u *url.URL, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: method, Path: u.String(), Body: body})
}

// Get is shorthand for a GET of an absolute URL.
func (c *Client) Get(ctx context.Context, u *url.URL) (*Response, error) {
	return c.Execute(ctx, http.MethodGet, u, nil)
}

// Pipeline returns the configured pipeline, or nil.
func (c *Client) Pipeline() *resilience.Pipeline[*Response] {
	return c.pipeline.Load()
}

// SetPipeline replaces the pipeline for subsequent calls. Calls already
// running finish on the pipeline they started with.
func (c *Client) SetPipeline(p *resilience.Pipeline[*Response]) {
	c.pipeline.Store(p)
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

// doOnce performs a single round trip inside its own span.
func (c *Client) doOnce(ctx context.Context, req Request, body []byte, contentType string) (resp *Response, err error) {
	httpReq, err := c.buildRequest(ctx, req, body, contentType)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanOutboundCall,
		attribute.String(observability.AttrHTTPMethod, httpReq.Method),
		attribute.String(observability.AttrHTTPURL, httpReq.URL.String()),
	)
	start := time.Now()
	defer func() {
		outcome := "error"
		if resp != nil {
			outcome = strconv.Itoa(resp.StatusCode)
			span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))
		} else if e, ok := AsError(err); ok {
			outcome = e.Code.String()
		}
		c.metrics.RecordOutbound(ctx, httpReq.Method, outcome, time.Since(start))
		observability.EndSpan(span, err)
	}()

	headers := make(map[string]string)
	observability.InjectHeaders(ctx, headers)
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	httpReq = httpReq.WithContext(ctx)

	resp, err = c.executeRequest(ctx, httpReq)
	if err != nil {
		c.log.WithContext(ctx).Debug("Outbound attempt failed", logger.Fields(
			logger.FieldMethod, httpReq.Method,
			logger.FieldURL, httpReq.URL.String(),
			logger.FieldError, err.Error(),
		))
	}
	return resp, err
}

// executeRequest sends the request and classifies the outcome. Non-success
// statuses are returned as *Error with no response.
func (c *Client) executeRequest(ctx context.Context, httpReq *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return nil, classErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request, body []byte, contentType string) (*http.Request, error) {
	target := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, NewRequestError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}

// encodeBody converts a body value into bytes and a content type. Bodies are
// encoded once so every retry sends the same payload.
func encodeBody(body any) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		data, err := io.ReadAll(v)
		return data, "", err
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
