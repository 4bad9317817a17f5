package input

import (
	"context"

	"screen-agent/internal/domain/entity"
)

// RunOptions selects how the iteration loop runs.
type RunOptions struct {
	// Continuous keeps iterating until a stop trigger fires; otherwise the
	// agent performs a single cycle and stops.
	Continuous bool
	// Instructions is free-form user guidance forwarded to the proposer.
	Instructions string
}

// AgentDriver is the lifecycle surface the console front end drives.
type AgentDriver interface {
	// Configure loads calibration and the reference image, moving the agent
	// from Idle through Configuring to Ready.
	Configure(ctx context.Context) error

	// Start launches the iteration worker. Returns immediately; the worker
	// owns all transitions out of Running.
	Start(ctx context.Context, opts RunOptions) error

	Pause() error
	Resume() error

	// Stop signals the run's cancellation token. Safe from any goroutine.
	Stop()

	// Reset returns a Stopped or Error agent to Idle.
	Reset() error

	State() entity.AgentState

	// Check verifies proposer connectivity without starting a run.
	Check(ctx context.Context) error

	// Wait blocks until the current worker, if any, has exited.
	Wait()
}
