package discovery

import (
	"context"
	"fmt"

	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/kubernetes"
)

// Aggregated API serving live pod usage when metrics-server is installed.
const (
	apiGroupMetrics   = "metrics.k8s.io"
	apiVersionMetrics = "v1beta1"
)

// Capabilities describes what the auditor is allowed to read and which
// optional backends answered at startup. Results are computed once and
// cached for the process lifetime.
type Capabilities struct {
	PodsReadable        bool   // list pods allowed; no audit pass can run without it
	ControllersReadable bool   // list apps/batch controllers allowed (ownership resolution)
	NodesReadable       bool   // list nodes allowed (capacity and overcommit)
	MetricsServer       bool   // metrics.k8s.io pod metrics registered and readable
	TelemetryReachable  bool   // historical metrics backend answered the probe
	Provider            string // "eks", "gke", "aks", "oke", or "" when undetectable
}

// Prober reports whether a historical metrics backend is answering.
// *telemetry.Client satisfies it.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// controllerResources are the owner listings the inventory walk performs.
// Pods are preflighted separately: a pod-list denial fails every audit
// pass, while a controller denial only degrades ownership resolution.
var controllerResources = []struct {
	group    string
	resource string
}{
	{"apps", "replicasets"},
	{"apps", "deployments"},
	{"apps", "statefulsets"},
	{"apps", "daemonsets"},
	{"batch", "jobs"},
	{"batch", "cronjobs"},
}

// Detect probes RBAC grants, the metrics-server API, the historical
// telemetry backend, and the cloud provider. A nil prober skips the
// telemetry probe. This is intended to run once at startup; errors are
// only returned for unexpected failures (e.g. the API server refusing
// access reviews), never for missing permissions or absent backends.
func Detect(ctx context.Context, client kubernetes.Interface, discoveryClient discovery.DiscoveryInterface, prober Prober) (*Capabilities, error) {
	caps := &Capabilities{}

	var err error
	caps.PodsReadable, err = CanList(ctx, client, "", "pods")
	if err != nil {
		return nil, fmt.Errorf("discovery: pod access review: %w", err)
	}
	caps.NodesReadable, err = CanList(ctx, client, "", "nodes")
	if err != nil {
		return nil, fmt.Errorf("discovery: node access review: %w", err)
	}

	caps.ControllersReadable = true
	for _, r := range controllerResources {
		allowed, err := CanList(ctx, client, r.group, r.resource)
		if err != nil {
			return nil, fmt.Errorf("discovery: %s access review: %w", r.resource, err)
		}
		if !allowed {
			caps.ControllersReadable = false
			break
		}
	}

	caps.MetricsServer, err = CheckResource(ctx, client, discoveryClient, apiGroupMetrics, apiVersionMetrics, "pods")
	if err != nil {
		return nil, err
	}

	if prober != nil {
		caps.TelemetryReachable = prober.Reachable(ctx)
	}

	// Provider detection needs a single node and fails gracefully: a
	// cluster the auditor cannot place simply reports no provider.
	if caps.NodesReadable {
		nodeList, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
		if err == nil && len(nodeList.Items) > 0 {
			caps.Provider = DetectProvider([]*v1.Node{&nodeList.Items[0]})
		}
	}

	return caps, nil
}

// HasAPIGroup checks whether a specific API group is registered with the cluster.
func HasAPIGroup(discoveryClient discovery.DiscoveryInterface, group string) (bool, error) {
	groups, err := discoveryClient.ServerGroups()
	if err != nil {
		return false, fmt.Errorf("discovery: list server groups: %w", err)
	}

	for _, g := range groups.Groups {
		if g.Name == group {
			return true, nil
		}
	}
	return false, nil
}
