// Package statemachine holds the agent lifecycle state machine: a closed
// transition table keyed by (state, event). It is the single source of truth
// for whether the agent is allowed to act right now.
package statemachine

import (
	"sync"

	"screen-agent/internal/domain/entity"
)

// transitions is the full table. Any (state, event) pair not listed here is
// an invalid transition and is reported, never silently ignored.
var transitions = map[entity.AgentState]map[entity.Event]entity.AgentState{
	entity.StateIdle: {
		entity.EventConfigure: entity.StateConfiguring,
	},
	entity.StateConfiguring: {
		entity.EventCalibrationReady: entity.StateReady,
		entity.EventCancel:           entity.StateIdle,
	},
	entity.StateReady: {
		entity.EventStart:       entity.StateRunning,
		entity.EventReconfigure: entity.StateConfiguring,
	},
	entity.StateRunning: {
		entity.EventPause: entity.StatePaused,
		entity.EventStop:  entity.StateStopped,
		entity.EventFault: entity.StateError,
	},
	entity.StatePaused: {
		entity.EventResume: entity.StateRunning,
		entity.EventStop:   entity.StateStopped,
	},
	entity.StateStopped: {
		entity.EventReset: entity.StateIdle,
	},
	entity.StateError: {
		entity.EventReset: entity.StateIdle,
	},
}

// Machine is safe for concurrent use: reads and transitions are atomic with
// respect to each other, so a transition is never observable as requested
// but not yet applied.
type Machine struct {
	mu    sync.RWMutex
	state entity.AgentState
}

func New() *Machine {
	return &Machine{state: entity.StateIdle}
}

func (m *Machine) CurrentState() entity.AgentState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// RequestTransition applies event to the current state. On success the new
// state is returned; otherwise an InvalidTransitionError is returned and the
// state is unchanged.
func (m *Machine) RequestTransition(event entity.Event) (entity.AgentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.state][event]
	if !ok {
		return m.state, &entity.InvalidTransitionError{From: m.state, Event: event}
	}
	m.state = next
	return next, nil
}

// CanTransition reports whether event is currently legal, without applying it.
func (m *Machine) CanTransition(event entity.Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := transitions[m.state][event]
	return ok
}
