// Package orchestrator drives the capture -> score -> propose -> validate ->
// execute cycle on its own worker goroutine. It is the only component that
// transitions the state machine out of Running.
package orchestrator

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/usecase/convergence"
	"screen-agent/internal/usecase/statemachine"
	"screen-agent/internal/usecase/validator"
)

// pausePollInterval bounds how long a pause request waits before the worker
// notices it.
const pausePollInterval = 100 * time.Millisecond

// actionRunner is what the orchestrator needs from the action executor.
type actionRunner interface {
	Run(actions []entity.Action, token *entity.CancelToken, maxActions int) entity.ExecutionReport
}

// metricsEngine is what the orchestrator needs from the metrics engine.
type metricsEngine interface {
	Compute(reference, current image.Image) entity.SimilarityMetrics
}

// PauseControl carries pause requests from the command thread to the worker.
// The worker polls it between cycles; the actual Running<->Paused transitions
// happen on the worker goroutine only.
type PauseControl struct {
	requested atomic.Bool
}

func (p *PauseControl) RequestPause()  { p.requested.Store(true) }
func (p *PauseControl) RequestResume() { p.requested.Store(false) }
func (p *PauseControl) PauseRequested() bool {
	return p.requested.Load()
}

type Orchestrator struct {
	machine  *statemachine.Machine
	capture  output.CapturePort
	proposer output.ProposerPort
	runner   actionRunner
	engine   metricsEngine
	session  output.SessionPort
	ui       output.UserInteractionPort
	logger   output.LoggerPort
	policy   entity.Policy
	index    *entity.CalibrationIndex
	ref      image.Image
}

type Deps struct {
	Machine   *statemachine.Machine
	Capture   output.CapturePort
	Proposer  output.ProposerPort
	Runner    actionRunner
	Engine    metricsEngine
	Session   output.SessionPort
	UI        output.UserInteractionPort
	Logger    output.LoggerPort
	Policy    entity.Policy
	Index     *entity.CalibrationIndex
	Reference image.Image
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		machine:  d.Machine,
		capture:  d.Capture,
		proposer: d.Proposer,
		runner:   d.Runner,
		engine:   d.Engine,
		session:  d.Session,
		ui:       d.UI,
		logger:   d.Logger,
		policy:   d.Policy,
		index:    d.Index,
		ref:      d.Reference,
	}
}

// Run executes iteration cycles until a stop trigger fires: the cancellation
// token, the proposer's stop flag, detected convergence, single-shot
// completion, or a fatal error. It must be entered with the machine already
// in Running and always leaves it in Stopped or Error.
func (o *Orchestrator) Run(ctx context.Context, token *entity.CancelToken, pause *PauseControl, opts input.RunOptions) error {
	detector := convergence.FromPolicy(o.policy)
	currentState := o.seedCurrentState()
	iteration := 0

	for {
		if err := o.waitWhilePaused(ctx, token, pause); err != nil {
			o.stop()
			return nil
		}

		// Step 1: cancellation gate.
		if token.IsSignaled() || ctx.Err() != nil {
			o.logger.Info("Cancellation observed, ending run", "iteration", iteration)
			o.stop()
			return nil
		}

		iteration++
		o.ui.ShowIteration(ctx, iteration)

		// Step 2: capture and score the current frame.
		before, err := o.capture.Capture(o.index.Roi())
		if err != nil {
			fatal := &entity.FatalError{Err: err}
			o.logger.Error("Capture failed, faulting", "iteration", iteration, "error", err)
			o.fault()
			return fatal
		}
		metricsBefore := o.engine.Compute(o.ref, before)
		o.ui.ShowMetrics(ctx, "before", metricsBefore)

		// Step 3: ask the proposer for corrective actions.
		resp, err := o.proposer.Propose(ctx, entity.ProposeContext{
			Reference:    o.ref,
			Current:      before,
			Metrics:      metricsBefore,
			Instructions: opts.Instructions,
			CurrentState: copyState(currentState),
			Catalog:      o.index.Catalog(),
		})
		if err != nil {
			perr := asProposerError(err)
			o.recordProposerFailure(iteration, metricsBefore, perr)
			if !opts.Continuous {
				o.logger.Error("Proposer failed in single-shot mode, faulting", "error", perr)
				o.fault()
				return perr
			}
			o.logger.Warn("Proposer failed, retrying next cycle", "iteration", iteration, "error", perr)
			o.ui.ShowError(ctx, perr)
			time.Sleep(o.policy.IterationDelay)
			continue
		}
		o.ui.ShowProposal(ctx, resp.Summary, resp.Confidence, len(resp.Actions))

		// Step 4: both stop triggers are independent and each alone is
		// authoritative -- the proposer can misjudge convergence exactly as
		// easily as a naive plateau can be a false positive.
		converged := detector.Observe(metricsBefore.Overall)
		if resp.Stop || converged {
			o.logger.Info("Stop trigger fired before execution",
				"iteration", iteration, "proposerStop", resp.Stop, "converged", converged)
			o.appendRecord(entity.IterationRecord{
				Iteration:       iteration,
				Timestamp:       time.Now(),
				MetricsBefore:   metricsBefore,
				Summary:         resp.Summary,
				Confidence:      resp.Confidence,
				ProposedActions: resp.Actions,
				ExecutedActions: []entity.ExecutedAction{},
				MetricsAfter:    metricsBefore,
				Converged:       converged,
			}, before, before)
			o.stop()
			return nil
		}

		// Step 5: every proposal passes the validation gate; failures are
		// dropped with their reason recorded, they never abort the iteration.
		accepted, rejected := o.validateAll(ctx, resp.Actions)

		// Step 6: execute what survived, capped per iteration.
		for _, a := range accepted {
			o.ui.ShowActionStart(ctx, a)
		}
		report := o.runner.Run(accepted, token, o.policy.MaxActionsPerIteration)
		if report.Err != nil {
			o.logger.Warn("Execution halted early", "iteration", iteration, "error", report.Err)
			o.ui.ShowError(ctx, report.Err)
		}
		applyExecuted(currentState, report.Executed)

		// Step 7: re-capture, score, append the record, feed the detector.
		after, err := o.capture.Capture(o.index.Roi())
		if err != nil {
			fatal := &entity.FatalError{Err: err}
			o.logger.Error("Re-capture failed, faulting", "iteration", iteration, "error", err)
			o.fault()
			return fatal
		}
		metricsAfter := o.engine.Compute(o.ref, after)
		o.ui.ShowMetrics(ctx, "after", metricsAfter)
		converged = detector.Observe(metricsAfter.Overall)

		rec := entity.IterationRecord{
			Iteration:       iteration,
			Timestamp:       time.Now(),
			MetricsBefore:   metricsBefore,
			Summary:         resp.Summary,
			Confidence:      resp.Confidence,
			ProposedActions: resp.Actions,
			Rejected:        rejected,
			ExecutedActions: recordedActions(report.Executed),
			StoppedEarly:    report.StoppedEarly,
			MetricsAfter:    metricsAfter,
			Converged:       converged,
		}
		if report.Err != nil {
			rec.Error = report.Err.Error()
		}
		o.appendRecord(rec, before, after)

		// Step 8: loop control.
		if !opts.Continuous {
			o.logger.Info("Single-shot cycle complete", "iteration", iteration)
			o.stop()
			return nil
		}
		if converged {
			o.logger.Info("Convergence detected, ending run", "iteration", iteration)
			o.stop()
			return nil
		}
		time.Sleep(o.policy.IterationDelay)
	}
}

// waitWhilePaused parks the worker while a pause is requested. Transitions to
// Paused and back to Running happen here, on the worker goroutine. Returns an
// error when cancellation arrived while paused.
func (o *Orchestrator) waitWhilePaused(ctx context.Context, token *entity.CancelToken, pause *PauseControl) error {
	if pause == nil || !pause.PauseRequested() {
		return nil
	}
	from := o.machine.CurrentState()
	if _, err := o.machine.RequestTransition(entity.EventPause); err != nil {
		return nil
	}
	o.ui.ShowStateChange(ctx, from, entity.StatePaused)
	o.logger.Info("Run paused")

	for pause.PauseRequested() {
		if token.IsSignaled() || ctx.Err() != nil {
			// Paused -> Stopped is in the table; land there directly.
			if next, err := o.machine.RequestTransition(entity.EventStop); err == nil {
				o.ui.ShowStateChange(ctx, entity.StatePaused, next)
			}
			return errors.New("cancelled while paused")
		}
		time.Sleep(pausePollInterval)
	}

	if _, err := o.machine.RequestTransition(entity.EventResume); err != nil {
		return err
	}
	o.ui.ShowStateChange(ctx, entity.StatePaused, entity.StateRunning)
	o.logger.Info("Run resumed")
	return nil
}

func (o *Orchestrator) validateAll(ctx context.Context, proposals []entity.ActionProposal) ([]entity.Action, []entity.RejectedProposal) {
	accepted := make([]entity.Action, 0, len(proposals))
	var rejected []entity.RejectedProposal
	for _, p := range proposals {
		action, err := validator.Validate(p, o.index, o.policy)
		if err != nil {
			o.logger.Warn("Proposal rejected",
				"type", p.Type, "target", p.Target, "reason", err.Error())
			o.ui.ShowActionRejected(ctx, p, err.Error())
			rejected = append(rejected, entity.RejectedProposal{Proposal: p, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, action)
	}
	return accepted, rejected
}

func (o *Orchestrator) seedCurrentState() map[string]float64 {
	state := make(map[string]float64)
	for _, ent := range o.index.Catalog() {
		if ent.Kind == entity.TargetSlider {
			state[ent.Name] = ent.DefaultValue
		}
	}
	return state
}

// applyExecuted folds executed slider deltas into the tracked control state
// echoed back to the proposer on the next cycle.
func applyExecuted(state map[string]float64, executed []entity.Action) {
	for _, a := range executed {
		if a.Type == entity.ActionSetSlider {
			state[a.Target.Name] += a.Delta
		}
	}
}

func (o *Orchestrator) recordProposerFailure(iteration int, metricsBefore entity.SimilarityMetrics, perr error) {
	o.appendRecord(entity.IterationRecord{
		Iteration:       iteration,
		Timestamp:       time.Now(),
		MetricsBefore:   metricsBefore,
		ExecutedActions: []entity.ExecutedAction{},
		MetricsAfter:    metricsBefore,
		Error:           perr.Error(),
	}, nil, nil)
}

func (o *Orchestrator) appendRecord(rec entity.IterationRecord, before, after image.Image) {
	if o.session == nil {
		return
	}
	if err := o.session.LogIteration(rec, before, after); err != nil {
		o.logger.Warn("Failed to persist iteration record", "iteration", rec.Iteration, "error", err)
	}
}

func (o *Orchestrator) stop() {
	from := o.machine.CurrentState()
	if next, err := o.machine.RequestTransition(entity.EventStop); err == nil {
		o.ui.ShowStateChange(context.Background(), from, next)
	}
}

func (o *Orchestrator) fault() {
	from := o.machine.CurrentState()
	if next, err := o.machine.RequestTransition(entity.EventFault); err == nil {
		o.ui.ShowStateChange(context.Background(), from, next)
	}
}

func asProposerError(err error) error {
	var perr *entity.ProposerError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &entity.ProposerError{Kind: entity.ProposerTimeout, Err: err}
	}
	return &entity.ProposerError{Kind: entity.ProposerTransport, Err: err}
}

func recordedActions(executed []entity.Action) []entity.ExecutedAction {
	out := make([]entity.ExecutedAction, 0, len(executed))
	for _, a := range executed {
		out = append(out, entity.Recorded(a))
	}
	return out
}

func copyState(state map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
