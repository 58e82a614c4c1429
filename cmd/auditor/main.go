package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/kubegov/kubegov-auditor/internal/auditor"
	"github.com/kubegov/kubegov-auditor/internal/config"
	"github.com/kubegov/kubegov-auditor/internal/discovery"
	"github.com/kubegov/kubegov-auditor/internal/engine"
	"github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/internal/health"
	"github.com/kubegov/kubegov-auditor/internal/inventory"
	"github.com/kubegov/kubegov-auditor/internal/observability"
	"github.com/kubegov/kubegov-auditor/internal/report"
	"github.com/kubegov/kubegov-auditor/internal/sink"
	"github.com/kubegov/kubegov-auditor/internal/telemetry"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	// 1. Load and validate config, then route logs to stderr so one-shot
	// report output owns stdout.
	cfg := config.Load()
	cfg.Version = version
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// 2. Create context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	slog.Info("kubegov-auditor starting",
		"version", cfg.Version,
		"namespace", cfg.Namespace,
		"workload", cfg.Workload,
		"analysis_window", cfg.AnalysisWindow,
		"interval", cfg.RunInterval,
	)

	// 3. Create shared infrastructure.
	metrics := observability.NewMetrics()
	errCollector := errors.NewCollector(errors.RealClock{})
	sm := auditor.NewStateMachine(errors.RealClock{})

	// 4. Build Kubernetes clients.
	restCfg := buildKubeConfig()
	kubeClient := kubernetes.NewForConfigOrDie(restCfg)
	metricsClient := metricsclientset.NewForConfigOrDie(restCfg)

	// 5. Build the telemetry client before discovery so the reachability
	// probe can exercise it.
	telemetryClient, err := telemetry.NewClient(cfg.PrometheusURL, cfg.PrometheusToken, slog.Default())
	if err != nil {
		slog.Error("failed to build telemetry client", "url", cfg.PrometheusURL, "error", err)
		os.Exit(1)
	}

	// 6. Detect cluster capabilities. Pod listing is the one hard
	// requirement; everything else degrades.
	caps, err := discovery.Detect(ctx, kubeClient, kubeClient.Discovery(), telemetryClient)
	if err != nil {
		slog.Error("failed to detect cluster capabilities", "error", err)
		os.Exit(1)
	}
	slog.Info("cluster capabilities detected",
		"pods_readable", caps.PodsReadable,
		"controllers_readable", caps.ControllersReadable,
		"nodes_readable", caps.NodesReadable,
		"metrics_server", caps.MetricsServer,
		"telemetry_reachable", caps.TelemetryReachable,
		"provider", caps.Provider,
	)
	if !caps.PodsReadable {
		slog.Error("pod listing denied by RBAC, no audit pass can run")
		os.Exit(1)
	}
	if !caps.ControllersReadable {
		slog.Warn("controller listing denied, workload ownership resolution degraded")
	}
	if !caps.NodesReadable {
		slog.Warn("node listing denied, overcommit degrades to capacity unknown")
	}
	if !caps.TelemetryReachable {
		slog.Warn("metrics backend probe failed, recommendations may degrade to insufficient-data",
			"url", cfg.PrometheusURL)
	}
	querier := telemetry.NewCachedQuerier(telemetryClient, cfg.CacheTTL)

	// 7. Build collaborators and the engine.
	source := inventory.NewKubernetesSource(kubeClient, slog.Default())

	var usage engine.UsageSampler
	if caps.MetricsServer && cfg.LiveUsageEnabled {
		usage = inventory.NewUsageSamplerFromClient(metricsClient.MetricsV1beta1(), slog.Default())
	}

	builder := report.NewBuilder(cfg.Version, cfg.CriticalNamespaces)
	eng := engine.New(source, usage, querier, builder, errCollector, slog.Default())

	// 8. Create the sink (optional) and the auditor.
	var sender auditor.ReportSender
	if cfg.SinkURL != "" {
		sender = sink.NewClient(&cfg, metrics, errCollector)
	}
	aud := auditor.New(&cfg, eng, sender, sm, errCollector, metrics)
	aud.SetQueryCache(querier)

	// 9. Start health server.
	healthSrv := health.NewServer(cfg.HealthPort, metrics, aud, aud, errCollector, cfg.DebugEndpoints)
	if err := healthSrv.Start(); err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	// 10. Start memory watchdog.
	watchdog := auditor.NewWatchdog(0.8, func() { runtime.GC() }, 30*time.Second, nil, metrics.HeapInuseBytes)
	watchdog.Start()

	// 11. Run the auditor (blocks until done or context canceled).
	runErr := aud.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		slog.Error("auditor exited with error", "error", runErr)
	}

	// 12. Graceful shutdown.
	watchdog.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}

	slog.Info("kubegov-auditor stopped")
	if runErr != nil && ctx.Err() == nil {
		os.Exit(1)
	}
}

// setupLogging installs a JSON slog handler on stderr at the configured
// level.
func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// buildKubeConfig creates a Kubernetes REST config.
// It tries in-cluster config first, then falls back to kubeconfig file
// (from $KUBECONFIG or the default ~/.kube/config).
func buildKubeConfig() *rest.Config {
	cfg, err := rest.InClusterConfig()
	if err == nil {
		slog.Info("using in-cluster kubernetes config")
		return cfg
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}

	cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		slog.Error("failed to build kubernetes config", "error", err)
		os.Exit(1)
	}
	slog.Info("using kubeconfig file", "path", kubeconfig)
	return cfg
}
