package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// KubernetesSource lists workloads and nodes through the Kubernetes API.
// Every pass issues fresh List calls; nothing is watched or cached, which
// keeps the auditor's API footprint to a handful of reads per report.
type KubernetesSource struct {
	client kubernetes.Interface
	logger *slog.Logger
}

// NewKubernetesSource creates a source backed by the given clientset.
func NewKubernetesSource(client kubernetes.Interface, logger *slog.Logger) *KubernetesSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &KubernetesSource{client: client, logger: logger}
}

// listing is the raw API state one ListWorkloads call works from.
type listing struct {
	pods         []corev1.Pod
	replicaSets  []appsv1.ReplicaSet
	deployments  []appsv1.Deployment
	statefulSets []appsv1.StatefulSet
	daemonSets   []appsv1.DaemonSet
	jobs         []batchv1.Job
	cronJobs     []batchv1.CronJob

	// controllersComplete is false when a controller list failed; pods
	// still resolve as far as the available chain allows.
	controllersComplete bool
}

// ListWorkloads implements Source. The pod list is authoritative: its
// failure fails the call. Controller lists only improve ownership
// resolution and creation timestamps, so their failure degrades.
func (s *KubernetesSource) ListWorkloads(ctx context.Context, scope model.Scope) ([]model.WorkloadDecl, error) {
	namespace := metav1.NamespaceAll
	if scope.Kind != model.ScopeCluster {
		namespace = scope.Namespace
	}

	l, err := s.list(ctx, namespace)
	if err != nil {
		return nil, err
	}

	decls := groupByOwner(l, newResolver(l))

	if scope.Kind == model.ScopeWorkload {
		decls = filterWorkload(decls, scope.Workload)
	}

	sort.Slice(decls, func(i, j int) bool {
		if decls[i].Namespace != decls[j].Namespace {
			return decls[i].Namespace < decls[j].Namespace
		}
		return decls[i].Name < decls[j].Name
	})
	return decls, nil
}

// list fetches pods and controllers in parallel. Each goroutine writes
// only its own listing field and error slot; g.Wait establishes the
// happens-before for the reads below.
func (s *KubernetesSource) list(ctx context.Context, namespace string) (*listing, error) {
	l := &listing{controllersComplete: true}
	opts := metav1.ListOptions{}

	var podErr, rsErr, deployErr, stsErr, dsErr, jobErr, cronErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var list *corev1.PodList
		if list, podErr = s.client.CoreV1().Pods(namespace).List(gctx, opts); podErr == nil {
			l.pods = list.Items
		}
		return nil
	})
	g.Go(func() error {
		var list *appsv1.ReplicaSetList
		if list, rsErr = s.client.AppsV1().ReplicaSets(namespace).List(gctx, opts); rsErr == nil {
			l.replicaSets = list.Items
		}
		return nil
	})
	g.Go(func() error {
		var list *appsv1.DeploymentList
		if list, deployErr = s.client.AppsV1().Deployments(namespace).List(gctx, opts); deployErr == nil {
			l.deployments = list.Items
		}
		return nil
	})
	g.Go(func() error {
		var list *appsv1.StatefulSetList
		if list, stsErr = s.client.AppsV1().StatefulSets(namespace).List(gctx, opts); stsErr == nil {
			l.statefulSets = list.Items
		}
		return nil
	})
	g.Go(func() error {
		var list *appsv1.DaemonSetList
		if list, dsErr = s.client.AppsV1().DaemonSets(namespace).List(gctx, opts); dsErr == nil {
			l.daemonSets = list.Items
		}
		return nil
	})
	g.Go(func() error {
		var list *batchv1.JobList
		if list, jobErr = s.client.BatchV1().Jobs(namespace).List(gctx, opts); jobErr == nil {
			l.jobs = list.Items
		}
		return nil
	})
	g.Go(func() error {
		var list *batchv1.CronJobList
		if list, cronErr = s.client.BatchV1().CronJobs(namespace).List(gctx, opts); cronErr == nil {
			l.cronJobs = list.Items
		}
		return nil
	})

	// Workers stash errors instead of returning them, so Wait never fails.
	_ = g.Wait()

	// The pod list is the one the audit cannot proceed without.
	if podErr != nil {
		return nil, fmt.Errorf("inventory: list pods in %s: %w", namespaceLabel(namespace), podErr)
	}

	controllerErrs := map[string]error{
		"replicasets":  rsErr,
		"deployments":  deployErr,
		"statefulsets": stsErr,
		"daemonsets":   dsErr,
		"jobs":         jobErr,
		"cronjobs":     cronErr,
	}
	for resource, err := range controllerErrs {
		if err != nil {
			l.controllersComplete = false
			s.logger.Warn("controller list failed, ownership resolution degraded",
				"resource", resource,
				"namespace", namespaceLabel(namespace),
				"error", err,
			)
		}
	}
	return l, nil
}

// groupByOwner buckets pods under their resolved controller and converts
// container declarations verbatim.
func groupByOwner(l *listing, r *resolver) []model.WorkloadDecl {
	groups := make(map[string]*model.WorkloadDecl)

	for i := range l.pods {
		pod := &l.pods[i]
		owner := r.resolve(pod)

		key := pod.Namespace + "/" + owner.kind + "/" + owner.name
		decl, ok := groups[key]
		if !ok {
			decl = &model.WorkloadDecl{
				Namespace: pod.Namespace,
				Name:      owner.name,
				Kind:      owner.kind,
				CreatedAt: owner.createdAt,
			}
			groups[key] = decl
		}
		decl.Pods = append(decl.Pods, podDecl(pod))
	}

	decls := make([]model.WorkloadDecl, 0, len(groups))
	for _, decl := range groups {
		sort.Slice(decl.Pods, func(i, j int) bool {
			return decl.Pods[i].Name < decl.Pods[j].Name
		})
		decls = append(decls, *decl)
	}
	return decls
}

// podDecl captures one pod's container declarations as raw strings.
func podDecl(pod *corev1.Pod) model.PodDecl {
	decl := model.PodDecl{
		Name:       pod.Name,
		Containers: make([]model.ContainerDecl, 0, len(pod.Spec.Containers)),
	}
	for i := range pod.Spec.Containers {
		c := &pod.Spec.Containers[i]
		decl.Containers = append(decl.Containers, model.ContainerDecl{
			Name:          c.Name,
			CPURequest:    quantityString(c.Resources.Requests, corev1.ResourceCPU),
			CPULimit:      quantityString(c.Resources.Limits, corev1.ResourceCPU),
			MemoryRequest: quantityString(c.Resources.Requests, corev1.ResourceMemory),
			MemoryLimit:   quantityString(c.Resources.Limits, corev1.ResourceMemory),
		})
	}
	return decl
}

// quantityString renders a declared quantity verbatim, empty when absent.
func quantityString(rl corev1.ResourceList, name corev1.ResourceName) string {
	q, ok := rl[name]
	if !ok {
		return ""
	}
	return q.String()
}

func filterWorkload(decls []model.WorkloadDecl, workload string) []model.WorkloadDecl {
	filtered := decls[:0]
	for _, d := range decls {
		if d.Name == workload {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// Capacity implements Source. Node allocatable, not raw capacity, is
// summed: allocatable already excludes system and eviction reservations,
// which is the amount the scheduler actually places against.
func (s *KubernetesSource) Capacity(ctx context.Context) (model.ClusterCapacity, error) {
	list, err := s.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return model.ClusterCapacity{Known: false}, fmt.Errorf("inventory: list nodes: %w", err)
	}

	capacity := model.ClusterCapacity{
		Known:     true,
		NodeCount: len(list.Items),
	}
	for i := range list.Items {
		node := &list.Items[i]
		if cpu, ok := node.Status.Allocatable[corev1.ResourceCPU]; ok {
			capacity.CPUMillicores += cpu.MilliValue()
		}
		if mem, ok := node.Status.Allocatable[corev1.ResourceMemory]; ok {
			capacity.MemoryBytes += mem.Value()
		}
		if capacity.Provider == "" {
			capacity.Provider = providerFromID(node.Spec.ProviderID)
		}
	}
	return capacity, nil
}

// providerFromID maps a node providerID prefix to a provider label.
// Typical formats: aws:///us-west-2a/i-0abc, gce://project/zone/name,
// azure:///subscriptions/..., oci://...
func providerFromID(providerID string) string {
	prefix, _, found := strings.Cut(providerID, "://")
	if !found || prefix == "" {
		return ""
	}
	switch prefix {
	case "aws":
		return "eks"
	case "gce":
		return "gke"
	case "azure":
		return "aks"
	case "oci":
		return "oke"
	default:
		return prefix
	}
}

func namespaceLabel(namespace string) string {
	if namespace == metav1.NamespaceAll {
		return "all namespaces"
	}
	return namespace
}
