// Package agency is the HTTP client for the external credential platform.
// Every call is bounded by the configured timeout, traced, and timed; any
// failure surfaces as an upstream domain error carrying an *UpstreamError.
package agency

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"credbridge/internal/platform/config"
	dErrors "credbridge/pkg/domain-errors"
)

const (
	tracerName       = "credbridge/internal/agency"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "credbridge_platform_request_duration_seconds",
	Help:    "Latency of calls to the credential platform",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
}, []string{"operation", "outcome"})

// Client talks to the credential platform REST API.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

// New builds a client from the platform configuration.
func New(cfg config.Platform, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		tracer:     otel.Tracer(tracerName),
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func orgPath(orgID string, parts ...string) string {
	segments := []string{"orgs", url.PathEscape(orgID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return "/" + strings.Join(segments, "/")
}

func requireOrg(orgID string) error {
	if config.IsPlaceholder(orgID) {
		return dErrors.New(dErrors.CodeConfiguration, "platform organization id is not configured")
	}
	return nil
}

// do performs one bounded platform call. out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	if config.IsPlaceholder(c.baseURL) {
		return dErrors.New(dErrors.CodeConfiguration, "platform base url is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "platform."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("platform.operation", op),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		requestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return dErrors.Wrap(merr, dErrors.CodeInternal, "encode platform request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build platform request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstreamFailure(op, 0, "request failed", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return upstreamFailure(op, resp.StatusCode, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamFailure(op, resp.StatusCode, upstreamMessage(raw, resp.StatusCode), nil)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeData(raw, out); err != nil {
		return upstreamFailure(op, resp.StatusCode, "malformed response body", err)
	}
	return nil
}

// decodeData unwraps an optional {"data": ...} envelope.
func decodeData(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &envelope); err == nil {
			data := bytes.TrimSpace(envelope.Data)
			if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
				return json.Unmarshal(data, out)
			}
		}
	}
	return json.Unmarshal(raw, out)
}

func upstreamMessage(raw []byte, status int) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
