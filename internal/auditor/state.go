package auditor

import (
	"strings"
	"sync"
	"time"

	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
)

// State represents the current lifecycle state of the auditor.
type State string

// Auditor lifecycle states.
const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateBackoff  State = "backoff"
	StateStopped  State = "stopped"
	StateExiting  State = "exiting"
)

// AllStates lists every lifecycle state, in declaration order. Used to
// reset the state gauge so exactly one state reads 1.
var AllStates = []State{StateStarting, StateRunning, StateBackoff, StateStopped, StateExiting}

// Backoff durations applied when report delivery fails. The sink client
// has already exhausted its own retries by the time these apply.
const (
	rateLimitBackoff   = 5 * time.Minute
	unreachableBackoff = 30 * time.Second
)

// StateMachine tracks the auditor's lifecycle state and handles
// transitions driven by report delivery outcomes.
type StateMachine struct {
	mu           sync.RWMutex
	state        State
	stateReason  string
	backoffUntil time.Time
	clock        auditerrors.Clock
}

// NewStateMachine creates a StateMachine starting in StateStarting.
func NewStateMachine(clock auditerrors.Clock) *StateMachine {
	return &StateMachine{
		state: StateStarting,
		clock: clock,
	}
}

// State returns the current auditor state.
func (sm *StateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// StateReason returns the human-readable reason for the current state.
func (sm *StateMachine) StateReason() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stateReason
}

// TransitionTo directly sets the auditor state with a reason.
func (sm *StateMachine) TransitionTo(state State, reason string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state = state
	sm.stateReason = reason
}

// HandleSendOutcome transitions state based on the outcome of a report
// delivery attempt. The sink surfaces terminal statuses as typed error
// messages after its own retry loop, so classification happens on the
// message, not on a raw HTTP status.
func (sm *StateMachine) HandleSendOutcome(err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err == nil {
		sm.state = StateRunning
		sm.stateReason = ""
		return
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "authentication failed"):
		// Credentials will not fix themselves; retrying only burns quota.
		sm.state = StateStopped
		sm.stateReason = "sink authentication failed"
	case strings.Contains(msg, "report rejected"), strings.Contains(msg, "payload too large"):
		// Terminal for this report only. The next pass produces a fresh
		// report that may well be accepted.
		sm.stateReason = "sink rejected last report"
	case strings.Contains(msg, "rate limited"):
		sm.state = StateBackoff
		sm.stateReason = "sink rate limited"
		sm.backoffUntil = sm.clock.Now().Add(rateLimitBackoff)
	default:
		// Network failure or 5xx after exhausted retries.
		sm.state = StateBackoff
		sm.stateReason = "sink unreachable"
		sm.backoffUntil = sm.clock.Now().Add(unreachableBackoff)
	}
}

// IsBackoffExpired returns true if the backoff period has elapsed.
func (sm *StateMachine) IsBackoffExpired() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.clock.Now().After(sm.backoffUntil)
}

// BackoffRemaining returns the duration until backoff expires, or 0 if expired.
func (sm *StateMachine) BackoffRemaining() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	remaining := sm.backoffUntil.Sub(sm.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
