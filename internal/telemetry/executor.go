package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// Limits bound one batch execution.
type Limits struct {
	// Concurrency is the number of workloads queried in parallel. Each
	// workload's queries run sequentially inside its slot.
	Concurrency int
	// QPS caps the aggregate query rate across all slots.
	QPS float64
	// QueryTimeout bounds a single attempt.
	QueryTimeout time.Duration
	// BatchDeadline bounds the whole batch; zero disables it.
	BatchDeadline time.Duration
}

// DefaultLimits returns the standard execution bounds.
func DefaultLimits() Limits {
	return Limits{
		Concurrency:   5,
		QPS:           10,
		QueryTimeout:  30 * time.Second,
		BatchDeadline: 2 * time.Minute,
	}
}

// Executor fans a plan out across bounded workers. A failed query is
// recorded against its workload and counted; it never aborts the batch.
type Executor struct {
	querier Querier
	limits  Limits
	logger  *slog.Logger
	errors  *auditerrors.Collector
}

// NewExecutor creates an executor. The error collector may be nil.
func NewExecutor(querier Querier, limits Limits, logger *slog.Logger, collector *auditerrors.Collector) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		querier: querier,
		limits:  limits,
		logger:  logger,
		errors:  collector,
	}
}

// Execute runs every query in the plan and assembles the per-workload
// series. The returned result always covers every planned workload, with
// failures recorded per kind.
func (e *Executor) Execute(ctx context.Context, plan []WorkloadQueries) *Result {
	if e.limits.BatchDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.BatchDeadline)
		defer cancel()
	}

	limiter := newLimiter(e.limits.QPS)

	// Each workload writes only its own slot, so no mutex is needed.
	series := make([]*WorkloadSeries, len(plan))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limits.Concurrency)

	for i := range plan {
		i := i
		group := plan[i]
		g.Go(func() error {
			ws := &WorkloadSeries{
				Namespace:   group.Namespace,
				Workload:    group.Workload,
				Usage:       make(map[model.ResourceKind]model.SampleSeries, 2),
				Peak:        make(map[model.ResourceKind]model.SampleSeries, 2),
				FailedKinds: make(map[model.ResourceKind]string),
			}

			for _, spec := range group.Specs {
				result, err := e.fetch(gctx, limiter, spec)
				if err != nil {
					failed.Add(1)
					e.recordFailure(spec, err)
					// A lost avg series blocks sizing for the kind; a lost
					// max series only loses limit-pressure analysis.
					if spec.Aggregation == model.AggregationAvg {
						ws.FailedKinds[spec.Kind] = err.Error()
					}
					continue
				}
				if spec.Aggregation == model.AggregationAvg {
					ws.Usage[spec.Kind] = result
				} else {
					ws.Peak[spec.Kind] = result
				}
			}

			series[i] = ws
			return nil
		})
	}

	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	result := &Result{
		Workloads:     make(map[string]*WorkloadSeries, len(plan)),
		FailedQueries: int(failed.Load()),
	}
	for _, ws := range series {
		if ws != nil {
			result.Workloads[ws.WorkloadKey()] = ws
		}
	}
	result.Complete = result.FailedQueries == 0

	return result
}

// fetch runs one query with the rate cap, a per-attempt timeout and a
// single retry. A dead batch context suppresses the retry.
func (e *Executor) fetch(ctx context.Context, limiter *rate.Limiter, spec model.QuerySpec) (model.SampleSeries, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("telemetry: batch deadline exceeded: %w", err)
		}

		qctx, cancel := context.WithTimeout(ctx, e.limits.QueryTimeout)
		series, err := e.querier.Range(qctx, spec)
		cancel()

		if err == nil {
			return series, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Debug("query attempt failed, retrying",
			"namespace", spec.Namespace,
			"workload", spec.Workload,
			"kind", string(spec.Kind),
			"error", err,
		)
	}

	return nil, lastErr
}

func (e *Executor) recordFailure(spec model.QuerySpec, err error) {
	code := auditerrors.ErrQueryFailed
	if errors.Is(err, context.DeadlineExceeded) {
		code = auditerrors.ErrQueryTimeout
	}

	e.logger.Warn("telemetry query failed",
		"namespace", spec.Namespace,
		"workload", spec.Workload,
		"kind", string(spec.Kind),
		"aggregation", string(spec.Aggregation),
		"error", err,
	)

	if e.errors != nil {
		e.errors.Report(auditerrors.EngineError{
			Code:      code,
			Message:   fmt.Sprintf("query for %s/%s %s failed: %v", spec.Namespace, spec.Workload, spec.Kind, err),
			Component: "telemetry",
			Timestamp: time.Now().UnixMilli(),
			Err:       err,
		})
	}
}

func newLimiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}
