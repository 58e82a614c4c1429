package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// rateWindow is the window fed to rate() for CPU counters. It matches the
// finest planner step so short analysis windows still resolve.
const rateWindow = "5m"

// promQL renders the query for one spec. CPU usage is the per-second rate
// of the cumulative counter in cores; memory usage is the working set in
// bytes. The pause container and sandbox series are excluded so sums
// reflect application containers only.
func promQL(spec model.QuerySpec) string {
	selector := fmt.Sprintf(`namespace=%q,pod=~%q,container!="",container!="POD"`,
		spec.Namespace, spec.PodSelector)

	if spec.Kind == model.ResourceCPU {
		return fmt.Sprintf(`%s(rate(container_cpu_usage_seconds_total{%s}[%s]))`,
			spec.Aggregation, selector, rateWindow)
	}
	return fmt.Sprintf(`%s(container_memory_working_set_bytes{%s})`,
		spec.Aggregation, selector)
}

// podSelector builds an anchored alternation matching exactly the given
// pods. Names are sorted so the same pod set always renders the same
// query, which keeps the cache effective.
func podSelector(pods []string) string {
	sorted := append([]string(nil), pods...)
	sort.Strings(sorted)
	return "^(" + strings.Join(sorted, "|") + ")$"
}
