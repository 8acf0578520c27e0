package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultTimeout = 20 * time.Second

// Options configures a provider client. Zero values pick defaults.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *RateLimiter
	Logger     *zap.Logger
}

// base is the HTTP plumbing shared by every provider.
type base struct {
	name    string
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
	logger  *zap.Logger
	// keyOptional marks providers that work without a key.
	keyOptional bool
}

func newBase(name, defaultURL string, tracer trace.Tracer, opts Options, defaultLimiter *RateLimiter) base {
	b := base{
		name:    name,
		client:  opts.HTTPClient,
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		tracer:  tracer,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: defaultTimeout}
	}
	if b.baseURL == "" {
		b.baseURL = defaultURL
	}
	if b.limiter == nil {
		b.limiter = defaultLimiter
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.Named(name)
	return b
}

// Name is the provider identifier used in source reports.
func (b *base) Name() string { return b.name }

// Configured reports whether an API key is set.
func (b *base) Configured() bool { return b.apiKey != "" }

// KeyRequired reports whether calls fail without a key.
func (b *base) KeyRequired() bool { return !b.keyOptional }

func (b *base) requireKey() error {
	if b.apiKey == "" {
		return fmt.Errorf("%s: %w", b.name, ErrMissingAPIKey)
	}
	return nil
}

func (b *base) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := b.tracer.Start(ctx, b.name+"."+op)
	span.SetAttributes(attribute.String("provider", b.name))
	return ctx, span
}

// doRequest performs one rate-limited call and returns the body of a 200 response.
func (b *base) doRequest(ctx context.Context, method, url string, headers map[string]string, payload any) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	b.logger.Debug("request complete",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: b.name, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (b *base) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	data, err := b.doRequest(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", b.name, err)
	}
	return nil
}

func (b *base) postJSON(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	data, err := b.doRequest(ctx, http.MethodPost, url, headers, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", b.name, err)
	}
	return nil
}

func recordErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
