// Package agent owns the agent lifecycle: configuration, run workers and the
// command surface the console front end drives. Commands arrive on the UI
// thread; the iteration loop runs on a worker goroutine the controller spawns
// per Start.
package agent

import (
	"context"
	"fmt"
	"image"
	"sync"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/usecase/executor"
	"screen-agent/internal/usecase/metrics"
	"screen-agent/internal/usecase/orchestrator"
	"screen-agent/internal/usecase/statemachine"
)

type Controller struct {
	machine     *statemachine.Machine
	capture     output.CapturePort
	proposer    output.ProposerPort
	inputDevice output.InputPort
	calibration output.CalibrationPort
	sessions    output.SessionFactory
	ui          output.UserInteractionPort
	logger      output.LoggerPort
	policy      entity.Policy

	mu        sync.Mutex
	index     *entity.CalibrationIndex
	reference image.Image
	token     *entity.CancelToken
	pause     *orchestrator.PauseControl
	done      chan struct{}
}

var _ input.AgentDriver = (*Controller)(nil)

type Deps struct {
	Machine     *statemachine.Machine
	Capture     output.CapturePort
	Proposer    output.ProposerPort
	Input       output.InputPort
	Calibration output.CalibrationPort
	Sessions    output.SessionFactory
	UI          output.UserInteractionPort
	Logger      output.LoggerPort
	Policy      entity.Policy
}

func NewController(d Deps) *Controller {
	return &Controller{
		machine:     d.Machine,
		capture:     d.Capture,
		proposer:    d.Proposer,
		inputDevice: d.Input,
		calibration: d.Calibration,
		sessions:    d.Sessions,
		ui:          d.UI,
		logger:      d.Logger,
		policy:      d.Policy,
	}
}

// Configure loads the calibration profile and reference image, walking
// Idle -> Configuring -> Ready. A Stopped agent is reset to Idle first; a
// Ready agent re-enters Configuring through reconfigure. Both reload the
// profile and reference.
func (c *Controller) Configure(ctx context.Context) error {
	if c.machine.CurrentState() == entity.StateStopped {
		if _, err := c.machine.RequestTransition(entity.EventReset); err != nil {
			return err
		}
		c.ui.ShowStateChange(ctx, entity.StateStopped, entity.StateIdle)
	}

	from := c.machine.CurrentState()
	event := entity.EventConfigure
	if from == entity.StateReady {
		event = entity.EventReconfigure
	}
	if _, err := c.machine.RequestTransition(event); err != nil {
		return err
	}
	c.ui.ShowStateChange(ctx, from, entity.StateConfiguring)

	index, reference, err := c.loadProfile()
	if err != nil {
		// Configuring -> Idle; the failed load never reaches Ready.
		if _, terr := c.machine.RequestTransition(entity.EventCancel); terr == nil {
			c.ui.ShowStateChange(ctx, entity.StateConfiguring, entity.StateIdle)
		}
		return err
	}

	c.mu.Lock()
	c.index = index
	c.reference = reference
	c.mu.Unlock()

	if _, err := c.machine.RequestTransition(entity.EventCalibrationReady); err != nil {
		return err
	}
	c.ui.ShowStateChange(ctx, entity.StateConfiguring, entity.StateReady)
	c.logger.Info("Calibration loaded", "targets", index.Len(), "roi", index.Roi())
	return nil
}

func (c *Controller) loadProfile() (*entity.CalibrationIndex, image.Image, error) {
	index, err := c.calibration.LoadIndex()
	if err != nil {
		return nil, nil, fmt.Errorf("load calibration: %w", err)
	}
	reference, err := c.calibration.LoadReference()
	if err != nil {
		return nil, nil, fmt.Errorf("load reference image: %w", err)
	}
	return index, reference, nil
}

// Start moves Ready -> Running and launches the iteration worker. The worker
// owns every transition out of Running; Start returns as soon as it is
// launched.
func (c *Controller) Start(ctx context.Context, opts input.RunOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil || c.reference == nil {
		return fmt.Errorf("not configured")
	}
	if _, err := c.machine.RequestTransition(entity.EventStart); err != nil {
		return err
	}
	c.ui.ShowStateChange(ctx, entity.StateReady, entity.StateRunning)

	session, err := c.sessions.Open()
	if err != nil {
		c.logger.Warn("Session store unavailable, run proceeds without artifacts", "error", err)
		session = nil
	}
	if session != nil {
		info := map[string]any{
			"continuous":   opts.Continuous,
			"instructions": opts.Instructions,
			"roi":          c.index.Roi(),
			"targets":      c.index.Names(),
		}
		if err := session.LogSessionInfo(info); err != nil {
			c.logger.Warn("Failed to write session info", "error", err)
		}
	}

	// Fresh one-shot token and pause control per run.
	c.token = &entity.CancelToken{}
	c.pause = &orchestrator.PauseControl{}
	c.done = make(chan struct{})

	orch := orchestrator.New(orchestrator.Deps{
		Machine:   c.machine,
		Capture:   c.capture,
		Proposer:  c.proposer,
		Runner:    executor.New(c.inputDevice, c.logger, c.policy),
		Engine:    metrics.NewEngine(),
		Session:   session,
		UI:        c.ui,
		Logger:    c.logger,
		Policy:    c.policy,
		Index:     c.index,
		Reference: c.reference,
	})

	token, pause, done := c.token, c.pause, c.done
	go func() {
		defer close(done)
		if session != nil {
			defer func() {
				if err := session.Close(); err != nil {
					c.logger.Warn("Failed to close session", "error", err)
				}
			}()
		}
		if err := orch.Run(ctx, token, pause, opts); err != nil {
			c.logger.Error("Run ended with error", "error", err)
			c.ui.ShowError(ctx, err)
		}
	}()
	return nil
}

// Pause requests a pause; the worker applies the Running -> Paused transition
// when it reaches a safe point between cycles.
func (c *Controller) Pause() error {
	c.mu.Lock()
	pause := c.pause
	c.mu.Unlock()

	if pause == nil || !c.machine.CanTransition(entity.EventPause) {
		return &entity.InvalidTransitionError{From: c.machine.CurrentState(), Event: entity.EventPause}
	}
	pause.RequestPause()
	return nil
}

func (c *Controller) Resume() error {
	c.mu.Lock()
	pause := c.pause
	c.mu.Unlock()

	// Resume is also accepted while still Running, to withdraw a pause
	// request the worker has not applied yet.
	if pause == nil || (!c.machine.CanTransition(entity.EventResume) && c.machine.CurrentState() != entity.StateRunning) {
		return &entity.InvalidTransitionError{From: c.machine.CurrentState(), Event: entity.EventResume}
	}
	pause.RequestResume()
	return nil
}

// Stop signals the current run's cancellation token. Idempotent and safe from
// any goroutine; the worker performs the actual transition.
func (c *Controller) Stop() {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != nil {
		token.Signal()
	}
}

func (c *Controller) Reset() error {
	from := c.machine.CurrentState()
	if _, err := c.machine.RequestTransition(entity.EventReset); err != nil {
		return err
	}
	c.ui.ShowStateChange(context.Background(), from, entity.StateIdle)
	c.mu.Lock()
	c.index = nil
	c.reference = nil
	c.mu.Unlock()
	return nil
}

func (c *Controller) State() entity.AgentState {
	return c.machine.CurrentState()
}

func (c *Controller) Check(ctx context.Context) error {
	return c.proposer.CheckConnection(ctx)
}

// Wait blocks until the current worker, if any, exits.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
