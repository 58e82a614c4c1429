package auditor

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MemStatsProvider abstracts runtime.MemStats reading for testability.
type MemStatsProvider interface {
	ReadMemStats(m *runtime.MemStats)
}

// runtimeMemStatsProvider uses the real runtime.ReadMemStats.
type runtimeMemStatsProvider struct{}

func (runtimeMemStatsProvider) ReadMemStats(m *runtime.MemStats) {
	runtime.ReadMemStats(m)
}

// Watchdog polls runtime.MemStats at a regular interval, exports heap
// usage on a gauge, and invokes a callback when memory usage exceeds a
// configurable threshold relative to GOMEMLIMIT. A governance pass over a
// large cluster holds every snapshot and series in memory at once, so the
// watchdog gives the process a chance to shed garbage before the limit.
type Watchdog struct {
	threshold float64       // 0.8 = 80% of GOMEMLIMIT
	callback  func()        // called when pressure detected
	interval  time.Duration // polling interval
	provider  MemStatsProvider
	heapGauge prometheus.Gauge // optional, records HeapInuse each poll
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewWatchdog creates a watchdog that calls callback when memory usage
// exceeds threshold * GOMEMLIMIT. If provider is nil, the real
// runtime.ReadMemStats is used. heapGauge may be nil.
func NewWatchdog(threshold float64, callback func(), interval time.Duration, provider MemStatsProvider, heapGauge prometheus.Gauge) *Watchdog {
	if provider == nil {
		provider = runtimeMemStatsProvider{}
	}
	return &Watchdog{
		threshold: threshold,
		callback:  callback,
		interval:  interval,
		provider:  provider,
		heapGauge: heapGauge,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background polling goroutine.
func (w *Watchdog) Start() {
	go w.run()
}

func (w *Watchdog) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.check() {
				slog.Warn("memory pressure detected, triggering callback")
				w.callback()
			}
		}
	}
}

// check samples memory stats and returns true if usage exceeds the
// threshold relative to GOMEMLIMIT.
func (w *Watchdog) check() bool {
	var stats runtime.MemStats
	w.provider.ReadMemStats(&stats)

	if w.heapGauge != nil {
		w.heapGauge.Set(float64(stats.HeapInuse))
	}

	limit := debug.SetMemoryLimit(-1) // read current limit without changing it
	if limit <= 0 {
		return false // GOMEMLIMIT not set
	}

	usage := stats.Sys - stats.HeapReleased
	ratio := float64(usage) / float64(limit)

	return ratio > w.threshold
}

// Stop halts the background polling goroutine. Safe to call multiple times.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}
