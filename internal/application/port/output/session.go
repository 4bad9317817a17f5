package output

import (
	"image"

	"screen-agent/internal/domain/entity"
)

// SessionPort persists per-run artifacts: session info, iteration records and
// before/after captures. The core never reads them back.
type SessionPort interface {
	LogSessionInfo(info map[string]any) error
	LogIteration(rec entity.IterationRecord, before, after image.Image) error
	Close() error
}

// SessionFactory opens a fresh session per run.
type SessionFactory interface {
	Open() (SessionPort, error)
}
