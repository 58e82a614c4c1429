// Package auditor runs governance passes on a schedule and delivers the
// resulting reports. It owns the process lifecycle: one-shot mode runs a
// single pass and exits, interval mode loops until stopped, with a state
// machine reacting to delivery outcomes and a memory watchdog guarding
// long-lived interval runs.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/kubegov/kubegov-auditor/internal/config"
	"github.com/kubegov/kubegov-auditor/internal/engine"
	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/internal/observability"
	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// ReportGenerator produces one governance report per call.
// *engine.Engine satisfies it.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, scope model.Scope, rng model.TimeRange, opts engine.Options) (*model.GovernanceReport, error)
}

// ReportSender delivers a finished report. *sink.Client satisfies it.
type ReportSender interface {
	Send(ctx context.Context, report *model.GovernanceReport) (*model.ReportResponse, error)
}

// QueryCache is the maintenance surface of the telemetry cache: the run
// loop purges it between passes and mirrors its counters onto the cache
// gauges. *telemetry.CachedQuerier satisfies it.
type QueryCache interface {
	Stats() (hits, misses int64)
	Purge()
}

// Auditor is the orchestrator that drives governance passes and report
// delivery. A nil sender disables delivery; one-shot runs then write the
// report JSON to the output writer instead.
type Auditor struct {
	config         *config.Config
	engine         ReportGenerator
	sink           ReportSender
	stateMachine   *StateMachine
	errorCollector *auditerrors.Collector
	metrics        *observability.Metrics
	cache          QueryCache
	output         io.Writer

	latestReport atomic.Pointer[model.GovernanceReport]
	ready        atomic.Bool
	startedAt    time.Time
}

// New creates an Auditor with all required dependencies. sender may be nil.
func New(
	cfg *config.Config,
	generator ReportGenerator,
	sender ReportSender,
	stateMachine *StateMachine,
	errCollector *auditerrors.Collector,
	metrics *observability.Metrics,
) *Auditor {
	return &Auditor{
		config:         cfg,
		engine:         generator,
		sink:           sender,
		stateMachine:   stateMachine,
		errorCollector: errCollector,
		metrics:        metrics,
		output:         os.Stdout,
		startedAt:      time.Now(),
	}
}

// SetOutput redirects the one-shot report JSON, which otherwise goes to
// stdout.
func (a *Auditor) SetOutput(w io.Writer) {
	a.output = w
}

// SetQueryCache hands the auditor the telemetry cache so the run loop
// can purge expired windows between passes and report hit rates.
func (a *Auditor) SetQueryCache(c QueryCache) {
	a.cache = c
}

// IsReady reports whether the auditor has completed at least one
// governance pass. Implements health.ReadinessChecker.
func (a *Auditor) IsReady() bool {
	return a.ready.Load()
}

// LatestReport returns the most recent GovernanceReport, or nil if none
// has been generated yet. Implements health.ReportProvider.
func (a *Auditor) LatestReport() interface{} {
	rep := a.latestReport.Load()
	if rep == nil {
		return nil
	}
	return rep
}

// Run executes the auditor lifecycle. With a zero interval it performs a
// single pass and returns its outcome; otherwise it loops on the
// configured interval until the context is canceled or the state machine
// reaches a terminal state.
func (a *Auditor) Run(ctx context.Context) error {
	scope := a.scope()

	if a.config.RunInterval == 0 {
		return a.runOnce(ctx, scope)
	}

	a.stateMachine.TransitionTo(StateRunning, "startup complete")
	a.observeState()
	slog.Info("auditor is ready", "state", StateRunning,
		"scope", scope.String(), "interval", a.config.RunInterval)

	ticker := time.NewTicker(a.config.RunInterval)
	defer ticker.Stop()

	// Do first pass immediately.
	_ = a.doPass(ctx, scope)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		state := a.stateMachine.State()
		switch state {
		case StateRunning:
			_ = a.doPass(ctx, scope)
		case StateBackoff:
			if a.stateMachine.IsBackoffExpired() {
				a.stateMachine.TransitionTo(StateRunning, "backoff expired")
				a.observeState()
				_ = a.doPass(ctx, scope)
			} else {
				slog.Debug("in backoff, skipping pass",
					"remaining", a.stateMachine.BackoffRemaining())
			}
		case StateStopped, StateExiting:
			slog.Info("auditor exiting", "state", state,
				"reason", a.stateMachine.StateReason())
			return nil
		}

		if s := a.stateMachine.State(); s == StateStopped || s == StateExiting {
			slog.Info("auditor exiting", "state", s,
				"reason", a.stateMachine.StateReason())
			return nil
		}
	}
}

// runOnce performs a single pass. Without a sink the report lands on the
// output writer so the operator can pipe it somewhere useful.
func (a *Auditor) runOnce(ctx context.Context, scope model.Scope) error {
	if err := a.doPass(ctx, scope); err != nil {
		return err
	}
	if a.sink != nil {
		return nil
	}

	enc := json.NewEncoder(a.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.latestReport.Load()); err != nil {
		return fmt.Errorf("auditor: write report: %w", err)
	}
	return nil
}

// doPass generates one report and, when a sender is wired, delivers it.
// Pass failures and delivery failures are both logged here; the returned
// error only matters for one-shot exit codes, since in interval mode the
// state machine already absorbed the outcome.
func (a *Auditor) doPass(ctx context.Context, scope model.Scope) error {
	start := time.Now()
	rng := model.TimeRange{Start: start.Add(-a.config.AnalysisWindow), End: start}
	opts := engine.OptionsFromConfig(a.config)

	rep, err := a.engine.GenerateReport(ctx, scope, rng, opts)
	a.maintainCache()
	if err != nil {
		if a.metrics != nil {
			a.metrics.PassTotal.WithLabelValues("error").Inc()
		}
		slog.Error("governance pass failed", "scope", scope.String(), "error", err)
		return err
	}

	a.latestReport.Store(rep)
	a.ready.Store(true)
	a.observePass(rep, time.Since(start))

	if a.sink == nil {
		return nil
	}

	resp, err := a.sink.Send(ctx, rep)
	a.stateMachine.HandleSendOutcome(err)
	a.observeState()
	if err != nil {
		slog.Error("report delivery failed", "report_id", rep.ReportID,
			"state", a.stateMachine.State(), "error", err)
		return err
	}

	if resp != nil {
		slog.Info("report delivered",
			"report_id", rep.ReportID,
			"received_at", resp.ReceivedAt,
		)
	}
	return nil
}

// scope derives the analysis scope from configuration. An empty namespace
// means the whole cluster.
func (a *Auditor) scope() model.Scope {
	switch {
	case a.config.Workload != "":
		return model.WorkloadScope(a.config.Namespace, a.config.Workload)
	case a.config.Namespace != "":
		return model.NamespaceScope(a.config.Namespace)
	default:
		return model.ClusterScope()
	}
}

func (a *Auditor) observePass(rep *model.GovernanceReport, elapsed time.Duration) {
	slog.Info("governance pass complete",
		"report_id", rep.ReportID,
		"findings", rep.Summary.FindingCount,
		"recommendations", rep.Summary.RecommendationCount,
		"duration", elapsed.Round(time.Millisecond),
	)
	if a.metrics == nil {
		return
	}
	a.metrics.PassTotal.WithLabelValues("success").Inc()
	if rep.Sources.FailedQueries > 0 {
		a.metrics.QueriesFailed.Add(float64(rep.Sources.FailedQueries))
	}
	a.metrics.ObservePass(elapsed.Seconds(), rep.Summary.SnapshotCount, rep.Summary.RecommendationCount,
		map[string]int{
			"critical": rep.Summary.CriticalCount,
			"error":    rep.Summary.ErrorCount,
			"warning":  rep.Summary.WarningCount,
			"info":     rep.Summary.InfoCount,
		})
}

// maintainCache drops expired telemetry windows after every pass and
// mirrors the cumulative hit and miss counts onto the gauges. Without the
// purge a long-lived interval process would keep one dead SampleSeries
// per query per pass.
func (a *Auditor) maintainCache() {
	if a.cache == nil {
		return
	}
	a.cache.Purge()
	if a.metrics == nil {
		return
	}
	hits, misses := a.cache.Stats()
	a.metrics.QueryCacheHits.Set(float64(hits))
	a.metrics.QueryCacheMisses.Set(float64(misses))
}

// observeState mirrors the state machine onto the state gauge so exactly
// one state reads 1.
func (a *Auditor) observeState() {
	if a.metrics == nil {
		return
	}
	current := a.stateMachine.State()
	for _, s := range AllStates {
		v := 0.0
		if s == current {
			v = 1.0
		}
		a.metrics.AuditorState.WithLabelValues(string(s)).Set(v)
	}
}
