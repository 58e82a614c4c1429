package inventory

import (
	"context"
	"fmt"
	"log/slog"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsv1beta1client "k8s.io/metrics/pkg/client/clientset/versioned/typed/metrics/v1beta1"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// MetricsAPI abstracts the metrics-server API for testability.
type MetricsAPI interface {
	ListPodMetrics(ctx context.Context, namespace string) ([]metricsv1beta1.PodMetrics, error)
}

// metricsAPIClient wraps the real metrics client to implement MetricsAPI.
type metricsAPIClient struct {
	client metricsv1beta1client.MetricsV1beta1Interface
}

func (c *metricsAPIClient) ListPodMetrics(ctx context.Context, namespace string) ([]metricsv1beta1.PodMetrics, error) {
	list, err := c.client.PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ContainerUsage is one container's instant usage reading.
type ContainerUsage struct {
	CPUCores    float64
	MemoryBytes int64
}

// UsageSampler reads instant container usage from the metrics-server API.
// Usage is an enrichment only: when the API is absent or a read fails the
// audit proceeds without it.
type UsageSampler struct {
	api    MetricsAPI
	logger *slog.Logger
}

// NewUsageSampler creates a sampler over the given API.
func NewUsageSampler(api MetricsAPI, logger *slog.Logger) *UsageSampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageSampler{api: api, logger: logger}
}

// NewUsageSamplerFromClient creates a sampler using a real metrics-server
// client.
func NewUsageSamplerFromClient(client metricsv1beta1client.MetricsV1beta1Interface, logger *slog.Logger) *UsageSampler {
	return NewUsageSampler(&metricsAPIClient{client: client}, logger)
}

// Sample returns instant usage keyed by namespace/pod/container.
func (s *UsageSampler) Sample(ctx context.Context, scope model.Scope) (map[string]ContainerUsage, error) {
	namespace := metav1.NamespaceAll
	if scope.Kind != model.ScopeCluster {
		namespace = scope.Namespace
	}

	items, err := s.api.ListPodMetrics(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("inventory: list pod metrics: %w", err)
	}

	usage := make(map[string]ContainerUsage)
	for i := range items {
		pm := &items[i]
		for j := range pm.Containers {
			cm := &pm.Containers[j]
			memQ := cm.Usage["memory"]
			cpuQ := cm.Usage["cpu"]
			usage[UsageKey(pm.Namespace, pm.Name, cm.Name)] = ContainerUsage{
				CPUCores:    cpuQ.AsApproximateFloat64(),
				MemoryBytes: memQ.Value(),
			}
		}
	}
	s.logger.Debug("sampled live usage", "containers", len(usage))
	return usage, nil
}

// UsageKey builds the namespace/pod/container map key.
func UsageKey(namespace, pod, container string) string {
	return namespace + "/" + pod + "/" + container
}

// ApplyUsage copies sampled readings onto matching snapshots. Call it
// while the snapshots are still being assembled; they are read-only once
// the pipeline starts.
func ApplyUsage(snapshots []model.ResourceSnapshot, usage map[string]ContainerUsage) {
	if len(usage) == 0 {
		return
	}
	for i := range snapshots {
		snap := &snapshots[i]
		u, ok := usage[UsageKey(snap.Namespace, snap.Pod, snap.Container)]
		if !ok {
			continue
		}
		cores := u.CPUCores
		bytes := u.MemoryBytes
		snap.CPUUsageCores = &cores
		snap.MemoryUsageBytes = &bytes
	}
}
