package entity

type ActionType string

const (
	ActionSetSlider ActionType = "set_slider"
	ActionDrag      ActionType = "drag"
	ActionKeypress  ActionType = "keypress"
)

// ActionProposal is the raw, untrusted action shape produced by the proposer.
// It is never executed directly; the validator turns it into an Action or
// rejects it.
type ActionProposal struct {
	Type   string   `json:"type"`
	Target string   `json:"target"`
	Delta  *float64 `json:"delta,omitempty"`
	DX     *float64 `json:"dx,omitempty"`
	DY     *float64 `json:"dy,omitempty"`
	Keys   []string `json:"keys,omitempty"`
	Reason string   `json:"reason"`
}

// Action is the validated, executable counterpart of an ActionProposal.
// Pixel deltas are already resolved and the target is known-good.
// Constructed only by the validator.
type Action struct {
	Type   ActionType
	Target CalibrationTarget
	// Delta is the proposer-requested slider delta in control units.
	Delta float64
	// PixelDX/PixelDY are the resolved on-screen deltas in pixels.
	PixelDX float64
	PixelDY float64
	Keys    []string
	Reason  string
}

// ExecutionReport describes the outcome of one executor run.
type ExecutionReport struct {
	Executed     []Action
	StoppedEarly bool
	Err          error
}
