package errors

import (
	"sync"
	"time"
)

// Code represents a typed error code surfaced in health output and sink
// payloads.
type Code string

// Engine error codes.
const (
	ErrInvalidOptions       Code = "INVALID_OPTIONS"
	ErrInventoryUnavailable Code = "INVENTORY_UNAVAILABLE"
	ErrCapacityUnknown      Code = "CAPACITY_UNKNOWN"
	ErrMetricsUnavailable   Code = "METRICS_UNAVAILABLE"
	ErrLiveUsageUnavailable Code = "LIVE_USAGE_UNAVAILABLE"
	ErrQueryFailed          Code = "QUERY_FAILED"
	ErrQueryTimeout         Code = "QUERY_TIMEOUT"
	ErrBatchDeadline        Code = "BATCH_DEADLINE"
	ErrPartialData          Code = "PARTIAL_DATA"
	ErrDiscoveryFailed      Code = "DISCOVERY_FAILED"
	ErrSinkUnreachable      Code = "SINK_UNREACHABLE"
	ErrCompressionFailed    Code = "COMPRESSION_FAILED"
	ErrAuthFailed           Code = "AUTH_FAILED"
)

// defaultTTL is the auto-expiry duration for errors not re-reported.
const defaultTTL = 5 * time.Minute

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// EngineError represents a typed error with code, component, and optional
// wrapped error.
type EngineError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Timestamp int64  `json:"timestamp"`
	Err       error  `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// entry wraps an EngineError with its last-reported time for expiry tracking.
type entry struct {
	err        EngineError
	lastReport time.Time
}

// Collector is a thread-safe store for active errors. Errors are keyed by
// Code+Component and auto-expire after 5 minutes if not re-reported.
type Collector struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]entry // key = string(Code) + "|" + Component
}

// NewCollector creates a Collector with the given clock.
func NewCollector(clock Clock) *Collector {
	return &Collector{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// key builds the dedup key for an error.
func key(code Code, component string) string {
	return string(code) + "|" + component
}

// Report stores or refreshes an error. The dedup key is Code+Component.
func (c *Collector) Report(err EngineError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(err.Code, err.Component)
	c.entries[k] = entry{
		err:        err,
		lastReport: c.clock.Now(),
	}
}

// Active returns all errors that have been reported within the TTL window.
func (c *Collector) Active() []EngineError {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	result := make([]EngineError, 0, len(c.entries))
	for k, e := range c.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(c.entries, k)
			continue
		}
		result = append(result, e.err)
	}
	return result
}

// ActiveCodes returns a deduplicated list of active error codes.
func (c *Collector) ActiveCodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	seen := make(map[Code]struct{})
	codes := make([]string, 0)
	for k, e := range c.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(c.entries, k)
			continue
		}
		if _, ok := seen[e.err.Code]; !ok {
			seen[e.err.Code] = struct{}{}
			codes = append(codes, string(e.err.Code))
		}
	}
	return codes
}

// Clear removes all tracked errors.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
