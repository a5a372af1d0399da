package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultConnectTimeout bounds connection establishment so an unreachable
	// name service fails fast.
	DefaultConnectTimeout = 4 * time.Second
	// DefaultTimeout bounds a single round trip, body included.
	DefaultTimeout = 60 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for exchanges. Its transport,
// jar and timeout are reused; redirect handling is always set per mode. A nil
// Transport is replaced by the default one bounded by the connect timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.base = h
		}
	}
}

// WithTransport overrides the round tripper of the default HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithConnectTimeout overrides DefaultConnectTimeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a zap logger. Exchanges are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every dispatch into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit throttles round trips to rps requests per second with the
// given burst. Both phases of a redirected write count.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client executes WebHDFS exchanges. It holds no per-call state and is safe
// for concurrent use.
type Client struct {
	base           *http.Client
	transport      http.RoundTripper
	connectTimeout time.Duration
	timeout        time.Duration
	headers        http.Header
	logger         *zap.Logger
	metrics        *Metrics
	limiter        *rate.Limiter

	follow *http.Client
	direct *http.Client
}

// NewClient creates a Client. Without options it dials with a
// DefaultConnectTimeout bound and follows redirects only in the modes that
// allow it.
func NewClient(opts ...Option) *Client {
	c := &Client{
		connectTimeout: DefaultConnectTimeout,
		timeout:        DefaultTimeout,
		headers:        make(http.Header),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := c.transport
	if transport == nil {
		transport = newTransport(c.connectTimeout)
	}
	base := c.base
	if base == nil {
		base = &http.Client{Transport: transport, Timeout: c.timeout}
	} else if base.Transport == nil {
		b := *base
		b.Transport = transport
		base = &b
	}

	follow := *base
	follow.CheckRedirect = nil
	direct := *base
	direct.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.follow = &follow
	c.direct = &direct
	return c
}

func newTransport(connectTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

// Dispatch executes one logical operation against rawURL, which must be a
// complete, percent-encoded URL. The returned Result matches mode; see the
// Mode types for the per-mode contract.
func (c *Client) Dispatch(ctx context.Context, method, rawURL string, mode Mode) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if mode == nil {
		return nil, errors.New("httpx: response mode is required")
	}
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
	default:
		return nil, fmt.Errorf("httpx: unsupported HTTP method %q", method)
	}

	start := time.Now()
	var (
		res *Result
		err error
	)
	switch m := mode.(type) {
	case Raw:
		res, err = c.dispatchRaw(ctx, method, rawURL)
	case JSON:
		res, err = c.dispatchJSON(ctx, method, rawURL)
	case StatusOnly:
		res, err = c.dispatchStatus(ctx, method, rawURL)
	case RedirectedWrite:
		res, err = c.dispatchWrite(ctx, method, rawURL, m.Payload)
	default:
		return nil, fmt.Errorf("httpx: unsupported response mode %T", mode)
	}
	elapsed := time.Since(start)

	c.metrics.observe(mode, outcome(err), elapsed)
	c.log(method, rawURL, mode, res, err, elapsed)
	return res, err
}

func (c *Client) dispatchRaw(ctx context.Context, method, rawURL string) (*Result, error) {
	resp, body, err := c.exchange(ctx, c.follow, method, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(resp, body)
	}
	return &Result{Mode: Raw{}, StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) dispatchJSON(ctx context.Context, method, rawURL string) (*Result, error) {
	resp, body, err := c.exchange(ctx, c.follow, method, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(resp, body)
	}
	obj, err := decodeObject(body)
	if err != nil {
		return nil, &DecodeError{StatusCode: resp.StatusCode, Body: body, Err: err}
	}
	return &Result{Mode: JSON{}, StatusCode: resp.StatusCode, Object: obj}, nil
}

func (c *Client) dispatchStatus(ctx context.Context, method, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	resp, err := c.do(ctx, c.follow, req)
	if err != nil {
		return nil, err
	}
	drainAndClose(resp.Body)
	return &Result{Mode: StatusOnly{}, StatusCode: resp.StatusCode}, nil
}

func (c *Client) dispatchWrite(ctx context.Context, method, rawURL string, payload []byte) (*Result, error) {
	hs := NewHandshake(method, payload)
	failed := func(err error) (*Result, error) {
		return &Result{Mode: RedirectedWrite{}, StatusCode: hs.Status()}, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	resp, err := c.do(ctx, c.direct, req)
	if err != nil {
		return failed(hs.Abort(err))
	}
	drainAndClose(resp.Body)
	if err := hs.AcceptRedirect(resp); err != nil {
		c.logger.Warn("webhdfs write handshake rejected",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return failed(err)
	}

	req, err = hs.PayloadRequest(ctx)
	if err != nil {
		return failed(err)
	}
	resp, err = c.do(ctx, c.direct, req)
	if err != nil {
		return failed(hs.Abort(err))
	}
	drainAndClose(resp.Body)
	status, err := hs.Complete(resp)
	if err != nil {
		return failed(err)
	}
	return &Result{Mode: RedirectedWrite{}, StatusCode: status, Location: hs.Target()}, nil
}

// exchange issues a body-less request and reads the full response body.
func (c *Client) exchange(ctx context.Context, client *http.Client, method, rawURL string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("httpx: build request: %w", err)
	}
	resp, err := c.do(ctx, client, req)
	if err != nil {
		return nil, nil, err
	}
	body, err := ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("httpx: read response body: %w", err)
	}
	return resp, body, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("httpx: rate limiter: %w", err)
		}
	}
	for k, values := range c.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return client.Do(req)
}

func (c *Client) log(method, rawURL string, mode Mode, res *Result, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("mode", mode.String()),
		zap.Duration("elapsed", elapsed),
	}
	if u, perr := url.Parse(rawURL); perr == nil {
		q := u.Query()
		fields = append(fields,
			zap.String("host", u.Host),
			zap.String("path", u.Path),
			zap.String("op", q.Get("op")),
			zap.String("user", q.Get("user.name")))
	}
	if res != nil {
		fields = append(fields, zap.Int("status", res.StatusCode))
	}
	if err != nil {
		fields = append(fields, zap.String("outcome", outcome(err)), zap.Error(err))
	}
	c.logger.Debug("webhdfs exchange", fields...)
}

func decodeObject(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	if trimmed[0] != '{' {
		return nil, errors.New("body is not a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	return obj, nil
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}
