package entity

import (
	"errors"
	"fmt"
)

var ErrRoiTooSmall = errors.New("roi size is too small, recalibrate with a larger area")

// RejectionReason identifies the validation rule that rejected a proposal.
type RejectionReason string

const (
	RejectionUnknownTarget     RejectionReason = "UnknownTarget"
	RejectionOutOfRange        RejectionReason = "OutOfRange"
	RejectionDisallowedKeys    RejectionReason = "DisallowedKeys"
	RejectionUnknownActionType RejectionReason = "UnknownActionType"
)

// ValidationError rejects a single action proposal. It is recovered per
// action: the proposal is dropped and the iteration continues.
type ValidationError struct {
	Reason RejectionReason
	Type   string
	Target string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("action rejected (%s): type=%q target=%q: %s", e.Reason, e.Type, e.Target, e.Detail)
}

// InvalidTransitionError reports a lifecycle event not listed for the current
// state. Always surfaced to the caller; state is left unchanged.
type InvalidTransitionError struct {
	From  AgentState
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q not allowed in state %q", e.Event, e.From)
}

type ProposerErrorKind string

const (
	ProposerMalformed   ProposerErrorKind = "malformed"
	ProposerSchema      ProposerErrorKind = "schema"
	ProposerRateLimited ProposerErrorKind = "rate_limited"
	ProposerTimeout     ProposerErrorKind = "timeout"
	ProposerTransport   ProposerErrorKind = "transport"
)

// ProposerError aborts the current iteration with no actions executed. In
// continuous mode the next cycle may retry; in single-shot mode it surfaces
// and the agent faults.
type ProposerError struct {
	Kind ProposerErrorKind
	Err  error
}

func (e *ProposerError) Error() string {
	return fmt.Sprintf("proposer error (%s): %v", e.Kind, e.Err)
}

func (e *ProposerError) Unwrap() error {
	return e.Err
}

// ExecutionError halts the remaining actions of the current iteration. It is
// reported, not retried, and is not fatal to the agent.
type ExecutionError struct {
	Target string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed on target %q: %v", e.Target, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ErrFocusLost is reported when the target application no longer holds input
// focus; wrapped in an ExecutionError by the executor.
var ErrFocusLost = errors.New("target application lost focus")

// FatalError forces a transition to Error; only an explicit reset returns the
// agent to Idle.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
