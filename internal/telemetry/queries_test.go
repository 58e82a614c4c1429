package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

func TestPromQL_CPU(t *testing.T) {
	spec := model.QuerySpec{
		Kind:        model.ResourceCPU,
		Aggregation: model.AggregationAvg,
		Namespace:   "payments",
		PodSelector: "^(web-1|web-2)$",
	}

	want := `avg(rate(container_cpu_usage_seconds_total{namespace="payments",pod=~"^(web-1|web-2)$",container!="",container!="POD"}[5m]))`
	assert.Equal(t, want, promQL(spec))
}

func TestPromQL_Memory(t *testing.T) {
	spec := model.QuerySpec{
		Kind:        model.ResourceMemory,
		Aggregation: model.AggregationMax,
		Namespace:   "payments",
		PodSelector: "^(web-1)$",
	}

	want := `max(container_memory_working_set_bytes{namespace="payments",pod=~"^(web-1)$",container!="",container!="POD"})`
	assert.Equal(t, want, promQL(spec))
}

func TestPodSelector_Sorted(t *testing.T) {
	// Pod order from the inventory is arbitrary; the selector must not be.
	assert.Equal(t, "^(a|b|c)$", podSelector([]string{"c", "a", "b"}))
	assert.Equal(t, "^(a|b|c)$", podSelector([]string{"b", "c", "a"}))
}

func TestPodSelector_SinglePod(t *testing.T) {
	assert.Equal(t, "^(checkout-abc12)$", podSelector([]string{"checkout-abc12"}))
}

func TestPodSelector_DoesNotMutateInput(t *testing.T) {
	pods := []string{"c", "a", "b"}
	podSelector(pods)
	assert.Equal(t, []string{"c", "a", "b"}, pods)
}
