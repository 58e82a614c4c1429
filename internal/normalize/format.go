package normalize

import (
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

// FormatCPU renders millicores in canonical declaration form ("100m", "2").
func FormatCPU(millicores int64) string {
	return resource.NewMilliQuantity(millicores, resource.DecimalSI).String()
}

// FormatMemory renders bytes in canonical declaration form ("32Mi", "1Gi").
func FormatMemory(bytes int64) string {
	return resource.NewQuantity(bytes, resource.BinarySI).String()
}

// FormatValue renders a value in the given kind's canonical form.
func FormatValue(kind model.ResourceKind, value int64) string {
	if kind == model.ResourceMemory {
		return FormatMemory(value)
	}
	return FormatCPU(value)
}
