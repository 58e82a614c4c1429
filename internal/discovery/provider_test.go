package discovery

import (
	"testing"

	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestDetectProvider_EKS(t *testing.T) {
	nodes := []*v1.Node{{
		Spec: v1.NodeSpec{
			ProviderID: "aws:///us-east-1a/i-1234567890abcdef0",
		},
	}}
	got := DetectProvider(nodes)
	if got != "eks" {
		t.Errorf("DetectProvider = %q, want %q", got, "eks")
	}
}

func TestDetectProvider_GKE(t *testing.T) {
	nodes := []*v1.Node{{
		Spec: v1.NodeSpec{
			ProviderID: "gce://my-project/us-central1-a/my-instance",
		},
	}}
	got := DetectProvider(nodes)
	if got != "gke" {
		t.Errorf("DetectProvider = %q, want %q", got, "gke")
	}
}

func TestDetectProvider_AKS(t *testing.T) {
	nodes := []*v1.Node{{
		Spec: v1.NodeSpec{
			ProviderID: "azure:///subscriptions/sub-123/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-name",
		},
	}}
	got := DetectProvider(nodes)
	if got != "aks" {
		t.Errorf("DetectProvider = %q, want %q", got, "aks")
	}
}

func TestDetectProvider_OKE(t *testing.T) {
	nodes := []*v1.Node{{
		Spec: v1.NodeSpec{
			ProviderID: "oci://ocid1.instance.oc1.phx.abc123",
		},
	}}
	got := DetectProvider(nodes)
	if got != "oke" {
		t.Errorf("DetectProvider = %q, want %q", got, "oke")
	}
}

func TestDetectProvider_NoNodes(t *testing.T) {
	got := DetectProvider(nil)
	if got != "" {
		t.Errorf("DetectProvider(nil) = %q, want empty", got)
	}

	got = DetectProvider([]*v1.Node{})
	if got != "" {
		t.Errorf("DetectProvider([]) = %q, want empty", got)
	}
}

// Unrecognized prefixes pass through so reports still carry a hint.
func TestDetectProvider_UnrecognizedPrefixPassesThrough(t *testing.T) {
	nodes := []*v1.Node{{
		Spec: v1.NodeSpec{
			ProviderID: "kind://docker/kind/kind-control-plane",
		},
	}}
	got := DetectProvider(nodes)
	if got != "kind" {
		t.Errorf("DetectProvider = %q, want %q", got, "kind")
	}
}

func TestDetectProvider_FallbackToLabels_EKS(t *testing.T) {
	nodes := []*v1.Node{{
		ObjectMeta: metav1.ObjectMeta{
			Labels: map[string]string{
				"eks.amazonaws.com/nodegroup": "my-group",
			},
		},
	}}
	got := DetectProvider(nodes)
	if got != "eks" {
		t.Errorf("DetectProvider (label fallback) = %q, want %q", got, "eks")
	}
}

func TestDetectProvider_FallbackToLabels_GKE(t *testing.T) {
	nodes := []*v1.Node{{
		ObjectMeta: metav1.ObjectMeta{
			Labels: map[string]string{
				"cloud.google.com/gke-nodepool": "default-pool",
			},
		},
	}}
	got := DetectProvider(nodes)
	if got != "gke" {
		t.Errorf("DetectProvider (label fallback) = %q, want %q", got, "gke")
	}
}

func TestDetectProvider_FallbackToLabels_AKS(t *testing.T) {
	nodes := []*v1.Node{{
		ObjectMeta: metav1.ObjectMeta{
			Labels: map[string]string{
				"kubernetes.azure.com/agentpool": "nodepool1",
			},
		},
	}}
	got := DetectProvider(nodes)
	if got != "aks" {
		t.Errorf("DetectProvider (label fallback) = %q, want %q", got, "aks")
	}
}

func TestDetectProvider_ProviderIDTakesPriority(t *testing.T) {
	// providerID says EKS, labels say GKE — providerID wins.
	nodes := []*v1.Node{{
		ObjectMeta: metav1.ObjectMeta{
			Labels: map[string]string{
				"cloud.google.com/gke-nodepool": "pool-1",
			},
		},
		Spec: v1.NodeSpec{
			ProviderID: "aws:///us-east-1a/i-abc123",
		},
	}}
	got := DetectProvider(nodes)
	if got != "eks" {
		t.Errorf("DetectProvider (providerID priority) = %q, want %q", got, "eks")
	}
}

func TestDetectProvider_BareMetalNode(t *testing.T) {
	nodes := []*v1.Node{{
		ObjectMeta: metav1.ObjectMeta{
			Labels: map[string]string{
				"kubernetes.io/hostname": "metal-01",
			},
		},
	}}
	got := DetectProvider(nodes)
	if got != "" {
		t.Errorf("DetectProvider (bare metal) = %q, want empty", got)
	}
}
