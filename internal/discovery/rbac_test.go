package discovery

import (
	"context"
	"testing"

	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	fakeclientset "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
)

// addSelfSubjectAccessReviewReactor installs a reactor on the fake client
// that returns the given allowed value for all SelfSubjectAccessReview requests.
func addSelfSubjectAccessReviewReactor(client *fakeclientset.Clientset, allowed bool) {
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, &authorizationv1.SelfSubjectAccessReview{
			Status: authorizationv1.SubjectAccessReviewStatus{
				Allowed: allowed,
			},
		}, nil
	})
}

// grantListOn installs a review reactor that allows list only for the named
// resources, denying everything else.
func grantListOn(client *fakeclientset.Clientset, resources ...string) {
	granted := make(map[string]bool, len(resources))
	for _, r := range resources {
		granted[r] = true
	}
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		review := action.(clienttesting.CreateAction).GetObject().(*authorizationv1.SelfSubjectAccessReview)
		allowed := false
		if attrs := review.Spec.ResourceAttributes; attrs != nil {
			allowed = granted[attrs.Resource]
		}
		return true, &authorizationv1.SelfSubjectAccessReview{
			Status: authorizationv1.SubjectAccessReviewStatus{
				Allowed: allowed,
			},
		}, nil
	})
}

func TestCanList_Allowed(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSelfSubjectAccessReviewReactor(client, true)

	ok, err := CanList(context.Background(), client, "", "pods")
	if err != nil {
		t.Fatalf("CanList() error = %v", err)
	}
	if !ok {
		t.Error("expected CanList=true when list is allowed")
	}
}

func TestCanList_Denied(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSelfSubjectAccessReviewReactor(client, false)

	ok, err := CanList(context.Background(), client, "", "pods")
	if err != nil {
		t.Fatalf("CanList() error = %v", err)
	}
	if ok {
		t.Error("expected CanList=false when access is denied")
	}
}

func TestCanList_ReviewsRequestedResourceOnly(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	grantListOn(client, "pods", "nodes")

	for _, tc := range []struct {
		group    string
		resource string
		want     bool
	}{
		{"", "pods", true},
		{"", "nodes", true},
		{"apps", "replicasets", false},
	} {
		got, err := CanList(context.Background(), client, tc.group, tc.resource)
		if err != nil {
			t.Fatalf("CanList(%s/%s) error = %v", tc.group, tc.resource, err)
		}
		if got != tc.want {
			t.Errorf("CanList(%s/%s) = %v, want %v", tc.group, tc.resource, got, tc.want)
		}
	}
}

func TestCheckResource_AllPhasesPass(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSelfSubjectAccessReviewReactor(client, true)

	disco := newFakeDiscovery([]*metav1.APIResourceList{
		{
			GroupVersion: "metrics.k8s.io/v1beta1",
			APIResources: []metav1.APIResource{
				{Name: "pods", Verbs: metav1.Verbs{"get", "list"}},
				{Name: "nodes", Verbs: metav1.Verbs{"get", "list"}},
			},
		},
	})

	available, err := CheckResource(context.Background(), client, disco, "metrics.k8s.io", "v1beta1", "pods")
	if err != nil {
		t.Fatalf("CheckResource() error = %v", err)
	}
	if !available {
		t.Error("expected resource to be available when all 3 phases pass")
	}
}

func TestCheckResource_APIGroupMissing(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()

	// No metrics.k8s.io group registered.
	disco := newFakeDiscovery([]*metav1.APIResourceList{
		{GroupVersion: "apps/v1"},
	})

	available, err := CheckResource(context.Background(), client, disco, "metrics.k8s.io", "v1beta1", "pods")
	if err != nil {
		t.Fatalf("CheckResource() should not error when API group missing, got: %v", err)
	}
	if available {
		t.Error("expected resource to be unavailable when API group is missing")
	}
}

func TestCheckResource_ResourceMissing(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()

	// Group exists but resource "pods" is not in it.
	disco := newFakeDiscovery([]*metav1.APIResourceList{
		{
			GroupVersion: "metrics.k8s.io/v1beta1",
			APIResources: []metav1.APIResource{
				{Name: "nodes", Verbs: metav1.Verbs{"get", "list"}},
			},
		},
	})

	available, err := CheckResource(context.Background(), client, disco, "metrics.k8s.io", "v1beta1", "pods")
	if err != nil {
		t.Fatalf("CheckResource() should not error when resource missing, got: %v", err)
	}
	if available {
		t.Error("expected resource to be unavailable when resource is not in group")
	}
}

func TestCheckResource_RBACDenied(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSelfSubjectAccessReviewReactor(client, false)

	disco := newFakeDiscovery([]*metav1.APIResourceList{
		{
			GroupVersion: "metrics.k8s.io/v1beta1",
			APIResources: []metav1.APIResource{
				{Name: "pods", Verbs: metav1.Verbs{"get", "list"}},
			},
		},
	})

	available, err := CheckResource(context.Background(), client, disco, "metrics.k8s.io", "v1beta1", "pods")
	if err != nil {
		t.Fatalf("CheckResource() error = %v", err)
	}
	if available {
		t.Error("expected resource to be unavailable when RBAC denies access")
	}
}

func TestCheckResource_GroupVersionNotFound(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()

	// Group exists with v1, but we ask for v1beta1.
	disco := newFakeDiscovery([]*metav1.APIResourceList{
		{
			GroupVersion: "metrics.k8s.io/v1",
			APIResources: []metav1.APIResource{
				{Name: "pods", Verbs: metav1.Verbs{"get", "list"}},
			},
		},
	})

	available, err := CheckResource(context.Background(), client, disco, "metrics.k8s.io", "v1beta1", "pods")
	if err != nil {
		t.Fatalf("CheckResource() should not error when group version not found, got: %v", err)
	}
	if available {
		t.Error("expected resource to be unavailable when group version doesn't match")
	}
}
