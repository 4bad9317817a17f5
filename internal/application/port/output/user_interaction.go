package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

type UserInteractionPort interface {
	ShowIteration(ctx context.Context, iteration int)
	ShowMetrics(ctx context.Context, label string, m entity.SimilarityMetrics)
	ShowProposal(ctx context.Context, summary string, confidence float64, actionCount int)
	ShowActionStart(ctx context.Context, a entity.Action)
	ShowActionRejected(ctx context.Context, p entity.ActionProposal, reason string)
	ShowStateChange(ctx context.Context, from, to entity.AgentState)
	ShowError(ctx context.Context, err error)
}
