package entity

import "time"

// RejectedProposal pairs a dropped proposal with the rule that rejected it,
// so a dropped action stays observable even though it does not stop the run.
type RejectedProposal struct {
	Proposal ActionProposal `json:"proposal"`
	Reason   string         `json:"reason"`
}

// IterationRecord is the append-only log entry written once per cycle. The
// core never reads it back except through the convergence detector's rolling
// window.
type IterationRecord struct {
	Iteration       int                `json:"iteration"`
	Timestamp       time.Time          `json:"timestamp"`
	MetricsBefore   SimilarityMetrics  `json:"metricsBefore"`
	Summary         string             `json:"summary"`
	Confidence      float64            `json:"confidence"`
	ProposedActions []ActionProposal   `json:"proposedActions"`
	Rejected        []RejectedProposal `json:"rejected,omitempty"`
	ExecutedActions []ExecutedAction   `json:"executedActions"`
	StoppedEarly    bool               `json:"stoppedEarly,omitempty"`
	MetricsAfter    SimilarityMetrics  `json:"metricsAfter"`
	Converged       bool               `json:"converged"`
	Error           string             `json:"error,omitempty"`
}

// ExecutedAction is the serializable shape of an executed Action.
type ExecutedAction struct {
	Type    ActionType `json:"type"`
	Target  string     `json:"target"`
	Delta   float64    `json:"delta,omitempty"`
	PixelDX float64    `json:"pixelDx,omitempty"`
	PixelDY float64    `json:"pixelDy,omitempty"`
	Keys    []string   `json:"keys,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// Recorded converts a validated Action into its log shape.
func Recorded(a Action) ExecutedAction {
	return ExecutedAction{
		Type:    a.Type,
		Target:  a.Target.Name,
		Delta:   a.Delta,
		PixelDX: a.PixelDX,
		PixelDY: a.PixelDY,
		Keys:    a.Keys,
		Reason:  a.Reason,
	}
}
