// Package gateway is the HTTP client for the upstream API gateway that fronts
// the search, cart and order services.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/storefront/internal/domain/identity"
	"github.com/erp/storefront/internal/domain/shared"
	"github.com/erp/storefront/internal/infrastructure/logger"
	"github.com/erp/storefront/internal/infrastructure/telemetry"
)

// defaultMaxResponseSize caps upstream bodies when the config leaves it unset (10MB).
const defaultMaxResponseSize = 10 * 1024 * 1024

// Outcome labels reported to the Observer.
const (
	OutcomeOK                 = "ok"
	OutcomeTransportFailure   = "transport_failure"
	OutcomeSessionInvalidated = "session_invalidated"
	OutcomeMalformed          = "malformed"
)

// Config configures the gateway client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        float64 // requests per second; 0 disables throttling
	RateBurst        int
	MaxResponseBytes int64
	UserAgent        string
}

// Validate checks that the config can build a client.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("gateway: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("gateway: base url scheme must be http or https, got %q", u.Scheme)
	}
	if c.RateLimit < 0 {
		return errors.New("gateway: rate limit cannot be negative")
	}
	return nil
}

// Observer receives per-call outcomes. telemetry.Metrics implements it.
type Observer interface {
	ObserveUpstream(operation, outcome string, elapsed time.Duration)
	ObserveSessionInvalidated()
}

// Client calls the upstream services on behalf of one caller identity per call.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL          *url.URL
	httpClient       *http.Client
	limiter          *rate.Limiter
	maxResponseBytes int64
	userAgent        string
	logger           *zap.Logger

	mu       sync.RWMutex
	listener identity.SessionListener
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseSize
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxResponseBytes: maxBytes,
		userAgent:        cfg.UserAgent,
		logger:           zap.NewNop(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetSessionListener registers the listener told about upstream 401 responses.
func (c *Client) SetSessionListener(l identity.SessionListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// SetObserver registers the metrics observer.
func (c *Client) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

func (c *Client) hooks() (identity.SessionListener, Observer) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listener, c.observer
}

// call describes one upstream request.
type call struct {
	operation string
	method    string
	path      []string
	query     url.Values
	body      any
	id        identity.Identity
}

// endpoint appends segments to the base URL. Each segment is escaped exactly
// once, so identifiers holding '/', ' ' or '%' arrive upstream unchanged.
func (c *Client) endpoint(segments []string, query url.Values) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u := *c.baseURL
	base, baseRaw := strings.TrimRight(u.Path, "/"), strings.TrimRight(u.EscapedPath(), "/")
	u.Path = base + "/" + strings.Join(segments, "/")
	u.RawPath = baseRaw + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do executes one request and hands the body of a 2xx answer to parse, if set.
//
// Every failure wraps a domain sentinel: ErrSessionInvalidated for 401,
// ErrMalformedPayload when parse rejects the body, ErrTransportFailure for
// everything else (network, timeout, cancellation, throttling, non-2xx,
// oversized body).
func (c *Client) do(ctx context.Context, cl call, parse func(body []byte) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "upstream."+cl.operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrUpstream, cl.operation),
	)
	defer span.End()

	start := time.Now()
	_, observer := c.hooks()
	defer func() {
		if observer != nil {
			observer.ObserveUpstream(cl.operation, outcomeOf(err), time.Since(start))
		}
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("%w: %s: throttled: %v", shared.ErrTransportFailure, cl.operation, werr)
		}
	}

	var reader io.Reader
	if cl.body != nil {
		payload, merr := json.Marshal(cl.body)
		if merr != nil {
			return fmt.Errorf("gateway: %s: failed to encode request: %w", cl.operation, merr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), reader)
	if err != nil {
		return fmt.Errorf("gateway: %s: failed to create request: %w", cl.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.id.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.id.Token)
	}
	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrTransportFailure, cl.operation, err)
	}
	defer resp.Body.Close()

	telemetry.SetAttributes(span, "http.status_code", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(ctx, cl)
		return fmt.Errorf("%w: %s: HTTP 401", shared.ErrSessionInvalidated, cl.operation)
	}

	// One extra byte distinguishes "exactly at the cap" from "over the cap".
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to read response: %v", shared.ErrTransportFailure, cl.operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: HTTP %d", shared.ErrTransportFailure, cl.operation, resp.StatusCode)
	}
	if int64(len(body)) > c.maxResponseBytes {
		return fmt.Errorf("%w: %s: response exceeds %d bytes", shared.ErrTransportFailure, cl.operation, c.maxResponseBytes)
	}
	if parse == nil {
		return nil
	}
	if perr := parse(body); perr != nil {
		return fmt.Errorf("%s: %w", cl.operation, perr)
	}
	return nil
}

func (c *Client) invalidate(ctx context.Context, cl call) {
	listener, observer := c.hooks()
	logger.WithLogger(ctx, logger.FromContextOr(ctx, c.logger)).Warn("Upstream rejected session",
		zap.String("operation", cl.operation),
		zap.String("user_id", cl.id.UserID),
	)
	if observer != nil {
		observer.ObserveSessionInvalidated()
	}
	if listener != nil && cl.id.Token != "" {
		listener.SessionInvalidated(ctx, cl.id.Token)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, shared.ErrSessionInvalidated):
		return OutcomeSessionInvalidated
	case errors.Is(err, shared.ErrMalformedPayload):
		return OutcomeMalformed
	default:
		return OutcomeTransportFailure
	}
}

// decode parses a JSON body keeping numbers as json.Number.
func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", shared.ErrMalformedPayload)
	}
	return v, nil
}
