// Package aiclient calls tools on the external AI backend.
//
// The backend speaks JSON-RPC 2.0 over HTTP POST ("tools/call"). Every call
// is throttled by a shared token bucket, bounded by a per-call timeout,
// traced with OpenTelemetry and counted in Prometheus. Failures come back
// as apperr.Upstream or apperr.UpstreamTimeout.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultGraphTimeout = 90 * time.Second
	DefaultRate         = 5.0
	DefaultBurst        = 10
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 4 << 20

// ErrNotConfigured is returned when no backend URL was configured.
var ErrNotConfigured = errors.New("ai backend not configured")

// Config wires a Client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	GraphTimeout  time.Duration
	RatePerSecond float64
	Burst         int

	HTTPClient *http.Client
	Tracer     trace.Tracer
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL      string
	timeout      time.Duration
	graphTimeout time.Duration
	limiter      *rate.Limiter
	http         *http.Client
	tracer       trace.Tracer
	metrics      *metrics.Metrics
	logger       *zap.Logger
	nextID       atomic.Int64
}

// New creates a Client. Zero values in cfg take the package defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.GraphTimeout <= 0 {
		cfg.GraphTimeout = DefaultGraphTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("mysre/aiclient")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimSpace(cfg.BaseURL),
		timeout:      cfg.Timeout,
		graphTimeout: cfg.GraphTimeout,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		http:         cfg.HTTPClient,
		tracer:       cfg.Tracer,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int64      `json:"id"`
	Method  string     `json:"method"`
	Params  toolParams `json:"params"`
}

type toolParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Result  *toolResult `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolResult struct {
	Content           []contentItem   `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (r *toolResult) text() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// CallTool invokes a backend tool and decodes its result into out.
// A *string receives the text content. Anything else is decoded from the
// structured content when present, else from the text as JSON.
func (c *Client) CallTool(ctx context.Context, tool string, args any, timeout time.Duration, out any) (err error) {
	if !c.Configured() {
		return apperr.Upstream(ErrNotConfigured, "AI backend is not configured")
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "aiclient.tools/call", trace.WithAttributes(
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", "tools/call"),
		attribute.String("ai.tool", tool),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			switch {
			case errors.Is(err, apperr.ErrUpstreamTimeout):
				outcome = "timeout"
			case errors.Is(err, context.Canceled):
				outcome = "cancelled"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Warn("ai tool call failed",
				zap.String("tool", tool),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
		}
		span.SetAttributes(attribute.String("ai.outcome", outcome))
		span.End()
		c.metrics.ObserveUpstream(tool, outcome, start)
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot accommodate the next
		// token; that is a timeout, a cancelled caller is not.
		if !errors.Is(ctx.Err(), context.Canceled) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return apperr.Upstream(err, "AI backend rate limit wait failed")
	}

	id := c.nextID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params:  toolParams{Name: tool, Arguments: args},
	})
	if err != nil {
		return apperr.Upstream(err, "could not encode AI request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return apperr.Upstream(err, "could not build AI request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		err = markDeadline(ctx, err)
		return apperr.Upstream(err, "AI backend request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = markDeadline(ctx, err)
		return apperr.Upstream(err, "could not read AI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Upstream(fmt.Errorf("status %d", resp.StatusCode),
			fmt.Sprintf("AI backend returned %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return apperr.Upstream(err, "AI backend returned malformed JSON")
	}
	if rpcResp.Error != nil {
		return apperr.Upstream(fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message),
			"AI backend error: "+rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return apperr.Upstream(errors.New("empty result"), "AI backend returned no result")
	}
	if rpcResp.Result.IsError {
		msg := rpcResp.Result.text()
		return apperr.Upstream(errors.New(msg), "AI tool failed: "+msg)
	}
	return decodeResult(rpcResp.Result, out)
}

// markDeadline tags err as a deadline failure when ctx ran out of time.
// Transport errors do not always wrap the context's cause.
func markDeadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func decodeResult(r *toolResult, out any) error {
	if out == nil {
		return nil
	}
	structured := len(r.StructuredContent) > 0 && string(r.StructuredContent) != "null"
	if s, ok := out.(*string); ok {
		*s = r.text()
		if *s == "" && structured {
			*s = string(r.StructuredContent)
		}
		return nil
	}
	data := []byte(r.text())
	if structured {
		data = r.StructuredContent
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Upstream(err, "AI backend returned unexpected content")
	}
	return nil
}
