// Package connector implements the channel adapters behind the
// channel.Connector port: WooCommerce, Zid, Salla and Shopify, sharing one
// retrying HTTP base.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options holds construction-time behavior shared by all connectors
type Options struct {
	// MaxAttempts bounds retries per request, including the first attempt
	MaxAttempts int
	// RequestTimeout is the per-request timeout
	RequestTimeout time.Duration
	// DryRun renders payloads without performing network calls. Missing
	// credentials are tolerated in dry-run mode.
	DryRun bool
	Logger *zap.Logger
	// Backoff overrides the retry delay, attempt counting from 1.
	// Defaults to 2^attempt seconds.
	Backoff func(attempt int) time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Backoff == nil {
		o.Backoff = func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		}
	}
	return o
}

// apiResult is the outcome of one API call after retries
type apiResult struct {
	OK         bool
	StatusCode int
	Body       []byte
	Err        error
}

func (r apiResult) errorString() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if !r.OK {
		return fmt.Sprintf("http %d", r.StatusCode)
	}
	return ""
}

// baseClient is the retrying HTTP core every connector embeds
type baseClient struct {
	http        *http.Client
	log         *zap.Logger
	maxAttempts int
	dryRun      bool
	backoff     func(attempt int) time.Duration
}

func newBaseClient(opts Options) baseClient {
	opts = opts.withDefaults()
	return baseClient{
		http:        &http.Client{Timeout: opts.RequestTimeout},
		log:         opts.Logger,
		maxAttempts: opts.MaxAttempts,
		dryRun:      opts.DryRun,
		backoff:     opts.Backoff,
	}
}

// dryRunResult is what every connector records per item when no call is made
func dryRunResult() apiResult {
	return apiResult{OK: true, StatusCode: 0, Body: []byte(`{"dry_run":true}`)}
}

// doJSON performs one JSON request with bounded retries. 429, 5xx and
// transport errors are retried with 2^attempt-seconds backoff; any other
// 4xx fails immediately since retrying a rejected payload cannot help.
func (b *baseClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body any) apiResult {
	if b.dryRun {
		return dryRunResult()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return apiResult{Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
	}

	var last apiResult
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		last = b.doOnce(ctx, method, url, headers, payload)
		if last.OK || !retryable(last) {
			return last
		}
		if attempt == b.maxAttempts {
			break
		}
		backoff := b.backoff(attempt)
		b.log.Debug("retrying channel request",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("status", last.StatusCode),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			last.Err = ctx.Err()
			return last
		case <-time.After(backoff):
		}
	}
	return last
}

func (b *baseClient) doOnce(ctx context.Context, method, url string, headers map[string]string, payload []byte) apiResult {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apiResult{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return apiResult{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiResult{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return apiResult{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}
}

func retryable(r apiResult) bool {
	if r.Err != nil {
		return true
	}
	return r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500
}

// mustJSON renders the audit copy of an outbound payload
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
