package entity

import "image"

// ProposerResponse is the normative response schema of the decision service.
// Summary, Actions, Stop and Confidence are all required; their absence is a
// schema error, not a crash.
type ProposerResponse struct {
	Summary    string           `json:"summary"`
	Actions    []ActionProposal `json:"actions"`
	Stop       bool             `json:"stop"`
	Confidence float64          `json:"confidence"`
}

// ProposeContext is the conceptual request payload handed to a proposer
// adapter. Transport, model selection and retries live in the adapter.
type ProposeContext struct {
	Reference    image.Image
	Current      image.Image
	Metrics      SimilarityMetrics
	Instructions string
	CurrentState map[string]float64
	Catalog      []TargetCatalogEntry
}
