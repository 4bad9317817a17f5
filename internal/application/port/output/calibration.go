package output

import (
	"image"

	"screen-agent/internal/domain/entity"
)

// CalibrationPort loads the target profile and the reference image the run
// compares against. Load happens during Configure; a failed load keeps the
// agent out of Ready.
type CalibrationPort interface {
	LoadIndex() (*entity.CalibrationIndex, error)
	LoadReference() (image.Image, error)
}
