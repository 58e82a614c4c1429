package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	pmodel "github.com/prometheus/common/model"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Client queries a Prometheus-compatible backend over its HTTP API.
type Client struct {
	api    v1.API
	logger *slog.Logger
}

// NewClient creates a backend client. An empty token leaves requests
// unauthenticated, which matches an in-cluster Prometheus without RBAC
// proxying.
func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rt := api.DefaultRoundTripper
	if token != "" {
		rt = &bearerTransport{token: token, next: rt}
	}

	c, err := api.NewClient(api.Config{Address: url, RoundTripper: rt})
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create client: %w", err)
	}

	return &Client{api: v1.NewAPI(c), logger: logger}, nil
}

// Range implements Querier.
func (c *Client) Range(ctx context.Context, spec model.QuerySpec) (model.SampleSeries, error) {
	query := promQL(spec)
	result, warnings, err := c.api.QueryRange(ctx, query, v1.Range{
		Start: spec.Start,
		End:   spec.End,
		Step:  spec.Step,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: range query failed: %w", err)
	}
	if len(warnings) > 0 {
		c.logger.Debug("query returned warnings", "query", query, "warnings", warnings)
	}

	return decodeMatrix(result)
}

// Reachable implements Querier with a minimal instant query.
func (c *Client) Reachable(ctx context.Context) bool {
	_, _, err := c.api.Query(ctx, "up", time.Now())
	return err == nil
}

// decodeMatrix flattens a range-query result into a sample series. The
// aggregated queries this package issues produce a single stream; should
// the backend return several, their samples are merged in time order.
func decodeMatrix(value pmodel.Value) (model.SampleSeries, error) {
	matrix, ok := value.(pmodel.Matrix)
	if !ok {
		return nil, fmt.Errorf("telemetry: unexpected result type %T", value)
	}

	var series model.SampleSeries
	for _, stream := range matrix {
		for _, pair := range stream.Values {
			series = append(series, model.Sample{
				Timestamp: int64(pair.Timestamp),
				Value:     float64(pair.Value),
			})
		}
	}

	if len(matrix) > 1 {
		sort.Slice(series, func(i, j int) bool { return series[i].Timestamp < series[j].Timestamp })
	}

	return series, nil
}

// bearerTransport adds an Authorization: Bearer header to every request.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}
