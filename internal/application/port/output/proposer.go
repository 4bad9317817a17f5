package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

// ProposerPort is the single capability interface in front of the external
// decision service. Concrete transport, model selection and retry policy live
// behind it so the vendor is swappable without touching the core loop.
type ProposerPort interface {
	Propose(ctx context.Context, pc entity.ProposeContext) (*entity.ProposerResponse, error)

	// CheckConnection performs a cheap round trip to verify credentials and
	// reachability before a run.
	CheckConnection(ctx context.Context) error
}
