// Package executor performs validated actions against the target application
// as simulated pointer and keyboard input. It is the only component that
// touches the input devices.
package executor

import (
	"strings"
	"time"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

const (
	// sliderSafetyMargin lifts the engage point above the slider anchor so
	// the drag never lands on the numeric-entry field next to it.
	sliderSafetyMargin = 8

	// primingDistance is a minimal initial displacement issued while the
	// button is down. Some target UIs register a press-move-release without
	// it as a click instead of a drag.
	primingDistance = 3

	primingDuration = 40 * time.Millisecond
	gestureDuration = 250 * time.Millisecond
)

type Executor struct {
	input  output.InputPort
	logger output.LoggerPort
	policy entity.Policy
}

func New(input output.InputPort, logger output.LoggerPort, policy entity.Policy) *Executor {
	return &Executor{
		input:  input,
		logger: logger,
		policy: policy,
	}
}

// Run executes actions strictly in order. Before each action it checks the
// cancellation token, the target application's focus and the maxActions cap;
// the first failed check stops the run with the partial executed list.
// Cancellation is cooperative: it is honored only between actions, never
// mid-gesture, so already-performed motion is never rolled back.
func (e *Executor) Run(actions []entity.Action, token *entity.CancelToken, maxActions int) entity.ExecutionReport {
	report := entity.ExecutionReport{Executed: make([]entity.Action, 0, len(actions))}

	for i, action := range actions {
		if token.IsSignaled() {
			e.logger.Info("Cancellation signaled, stopping action run", "executed", len(report.Executed))
			report.StoppedEarly = true
			return report
		}
		if !e.hasFocus() {
			e.logger.Warn("Target application lost focus, stopping action run",
				"executed", len(report.Executed), "focusTitle", e.policy.FocusTitle)
			report.StoppedEarly = true
			report.Err = &entity.ExecutionError{Target: action.Target.Name, Err: entity.ErrFocusLost}
			return report
		}
		if len(report.Executed) >= maxActions {
			e.logger.Info("Per-iteration action cap reached", "maxActions", maxActions)
			report.StoppedEarly = true
			return report
		}

		e.logger.Info("Executing action",
			"index", i,
			"type", string(action.Type),
			"target", action.Target.Name,
			"pixelDx", action.PixelDX,
			"pixelDy", action.PixelDY,
			"keys", action.Keys,
			"reason", action.Reason,
		)

		if err := e.perform(action); err != nil {
			report.StoppedEarly = true
			report.Err = &entity.ExecutionError{Target: action.Target.Name, Err: err}
			e.logger.Error("Action failed, halting remaining actions for this iteration",
				"target", action.Target.Name, "error", err)
			return report
		}
		report.Executed = append(report.Executed, action)

		if i < len(actions)-1 {
			time.Sleep(e.policy.InterActionDelay)
		}
	}
	return report
}

func (e *Executor) perform(action entity.Action) error {
	switch action.Type {
	case entity.ActionSetSlider:
		return e.dragGesture(action.Target.X, action.Target.Y-sliderSafetyMargin, int(action.PixelDX), 0, true)
	case entity.ActionDrag:
		return e.dragGesture(action.Target.X, action.Target.Y, int(action.PixelDX), int(action.PixelDY), false)
	case entity.ActionKeypress:
		return e.input.Chord(action.Keys)
	default:
		// Unreachable for validator-produced actions.
		return &entity.ValidationError{Reason: entity.RejectionUnknownActionType, Type: string(action.Type), Target: action.Target.Name}
	}
}

// dragGesture is one discrete, non-cancellable unit: move to the engage point,
// press, optionally prime with a small sub-movement, travel, release. On a
// mid-gesture failure the button is released before reporting the error so
// the pointer is never left stuck in a drag.
func (e *Executor) dragGesture(x, y, dx, dy int, prime bool) error {
	if err := e.input.MoveTo(x, y); err != nil {
		return err
	}
	if err := e.input.MouseDown(); err != nil {
		return err
	}

	if prime && dx != 0 {
		step := primingDistance
		if dx < 0 {
			step = -primingDistance
		}
		if err := e.input.MoveBy(step, 0, primingDuration); err != nil {
			_ = e.input.MouseUp()
			return err
		}
		dx -= step
	}

	if err := e.input.MoveBy(dx, dy, gestureDuration); err != nil {
		_ = e.input.MouseUp()
		return err
	}
	return e.input.MouseUp()
}

// hasFocus checks the active window title against the configured target
// title. An empty configured title disables the check; a title read failure
// counts as focus held rather than killing the run.
func (e *Executor) hasFocus() bool {
	if e.policy.FocusTitle == "" {
		return true
	}
	title, err := e.input.ActiveWindowTitle()
	if err != nil {
		return true
	}
	return strings.HasPrefix(strings.ToLower(title), strings.ToLower(e.policy.FocusTitle))
}
