package discovery

import (
	"strings"

	v1 "k8s.io/api/core/v1"
)

// Well-known provider-specific node labels used as fallback signals when
// spec.providerID is empty.
const (
	labelEKSNodeGroup    = "eks.amazonaws.com/nodegroup"
	labelEKSCapacity     = "eks.amazonaws.com/capacityType"
	labelGKENodePool     = "cloud.google.com/gke-nodepool"
	labelAKSNodepoolName = "kubernetes.azure.com/agentpool"
)

// Managed-distribution names, matching what workload reports carry.
const (
	providerEKS = "eks"
	providerGKE = "gke"
	providerAKS = "aks"
	providerOKE = "oke"
)

// DetectProvider determines the managed Kubernetes distribution from node
// metadata. It inspects spec.providerID prefixes and provider-specific
// labels on the first available node. Pure function — no API calls.
//
// Returns "eks", "gke", "aks", "oke", or "" when the cluster cannot be
// placed (bare metal, kind, unrecognized provider).
func DetectProvider(nodes []*v1.Node) string {
	if len(nodes) == 0 {
		return ""
	}

	node := nodes[0]

	// Phase 1: Check providerID prefix (most reliable).
	if provider := distributionFromID(node.Spec.ProviderID); provider != "" {
		return provider
	}

	// Phase 2: Fall back to provider-specific labels.
	return distributionFromLabels(node.Labels)
}

// distributionFromID maps a node providerID prefix to a distribution name.
// Typical formats: aws:///us-west-2a/i-0abc, gce://project/zone/name,
// azure:///subscriptions/..., oci://...
func distributionFromID(providerID string) string {
	prefix, _, found := strings.Cut(providerID, "://")
	if !found || prefix == "" {
		return ""
	}
	switch prefix {
	case "aws":
		return providerEKS
	case "gce":
		return providerGKE
	case "azure":
		return providerAKS
	case "oci":
		return providerOKE
	default:
		return prefix
	}
}

// distributionFromLabels checks for provider-specific labels as a fallback
// signal. Covers nodes registered before the cloud controller assigns a
// providerID.
func distributionFromLabels(labels map[string]string) string {
	if labels == nil {
		return ""
	}

	if _, ok := labels[labelEKSNodeGroup]; ok {
		return providerEKS
	}
	if _, ok := labels[labelEKSCapacity]; ok {
		return providerEKS
	}
	if _, ok := labels[labelGKENodePool]; ok {
		return providerGKE
	}
	if _, ok := labels[labelAKSNodepoolName]; ok {
		return providerAKS
	}

	return ""
}
