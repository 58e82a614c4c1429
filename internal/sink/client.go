package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kubegov/kubegov-auditor/internal/config"
	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/internal/observability"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Client delivers GovernanceReports to the configured sink over HTTP with
// streaming zstd compression. It never buffers the full JSON payload in
// memory.
type Client struct {
	httpClient *http.Client
	config     *config.Config
	metrics    *observability.Metrics
	errors     *auditerrors.Collector
}

// NewClient creates a sink Client with middleware applied.
// Retry is handled at the Send level (not the RoundTripper) because
// the streaming io.Pipe body must be re-created on each attempt.
func NewClient(cfg *config.Config, metrics *observability.Metrics, errs *auditerrors.Collector) *Client {
	// Use an explicit transport instead of http.DefaultTransport to avoid
	// sharing mutable state with other code in the process.
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	// Auth middleware decorates every request with the bearer token.
	transport := WithAuth(cfg.SinkToken, base)

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		config:  cfg,
		metrics: metrics,
		errors:  errs,
	}
}

// Send streams a GovernanceReport to the sink using io.Pipe + zstd
// compression. It re-creates the io.Pipe on each retry attempt since a
// pipe can only be consumed once.
func (c *Client) Send(ctx context.Context, report *model.GovernanceReport) (*model.ReportResponse, error) {
	start := time.Now()

	var result *model.ReportResponse
	var rawBytes, compressedBytes int64
	var lastErr error

	maxAttempts := c.config.MaxRetries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.PushRetries.Inc()
			}
			sleepWithBackoff(attempt - 1)
		}

		// Check context before each attempt.
		if err := ctx.Err(); err != nil {
			lastErr = fmt.Errorf("sink: context canceled before attempt %d: %w", attempt+1, err)
			break
		}

		resp, raw, compressed, err := c.doSend(ctx, report)
		rawBytes, compressedBytes = raw, compressed
		if err != nil {
			lastErr = err
			// Don't retry auth failures or non-retryable errors.
			if isNonRetryableError(err) {
				break
			}
			continue
		}

		result = resp
		lastErr = nil
		break
	}

	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.PushDuration.Observe(elapsed.Seconds())
		if rawBytes > 0 {
			c.metrics.ReportSizeBytes.WithLabelValues("raw").Observe(float64(rawBytes))
		}
		if compressedBytes > 0 {
			c.metrics.ReportSizeBytes.WithLabelValues("compressed").Observe(float64(compressedBytes))
			if rawBytes > 0 {
				c.metrics.CompressionRatio.Set(float64(compressedBytes) / float64(rawBytes))
			}
		}
		if lastErr != nil {
			c.metrics.PushTotal.WithLabelValues("error").Inc()
		} else {
			c.metrics.PushTotal.WithLabelValues("success").Inc()
		}
	}

	if lastErr != nil {
		if c.errors != nil {
			c.errors.Report(auditerrors.EngineError{
				Code:      auditerrors.ErrSinkUnreachable,
				Message:   fmt.Sprintf("report push failed: %v", lastErr),
				Component: "sink",
				Timestamp: time.Now().UnixMilli(),
				Err:       lastErr,
			})
		}
		return nil, lastErr
	}

	return result, nil
}

// doSend performs a single HTTP POST with streaming compression.
// Each call creates a fresh io.Pipe so it can be called multiple times for
// retries. It returns the raw and compressed byte counts alongside the
// parsed response.
func (c *Client) doSend(ctx context.Context, report *model.GovernanceReport) (*model.ReportResponse, int64, int64, error) {
	pr, pw := io.Pipe()
	meter := &streamMeter{}

	zw, err := zstd.NewWriter(meter.compressedTap(pw), zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.config.CompressionLevel)))
	if err != nil {
		_ = pw.Close()
		return nil, 0, 0, fmt.Errorf("sink: failed to create zstd encoder: %w", err)
	}
	raw := meter.rawTap(zw)

	// Goroutine: encode JSON, zstd, pipe.
	go func() {
		encodeErr := json.NewEncoder(raw).Encode(report)
		// Close zstd first to flush, then close the pipe.
		closeErr := zw.Close()
		if encodeErr != nil {
			pw.CloseWithError(fmt.Errorf("sink: JSON encode failed: %w", encodeErr))
		} else if closeErr != nil {
			pw.CloseWithError(fmt.Errorf("sink: zstd close failed: %w", closeErr))
		} else {
			_ = pw.Close()
		}
	}()

	// Build the request reading from the pipe.
	url := c.config.SinkURL + "/api/v1/reports"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return nil, 0, 0, fmt.Errorf("sink: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "zstd")
	req.Header.Set("X-Report-ID", report.ReportID)
	req.Header.Set("X-Auditor-Version", c.config.Version)
	if report.Cluster.Provider != "" {
		req.Header.Set("X-Cluster-Provider", report.Cluster.Provider)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		rawN, compN := meter.sizes()
		return nil, rawN, compN, fmt.Errorf("sink: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	result, err := ParseResponse(resp)
	rawN, compN := meter.sizes()
	if err != nil {
		return nil, rawN, compN, err
	}

	return result, rawN, compN, nil
}

// isNonRetryableError checks if an error should not be retried.
func isNonRetryableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "report rejected") ||
		strings.Contains(msg, "payload too large")
}
