package output

import (
	"image"
	"time"

	"screen-agent/internal/domain/entity"
)

// CapturePort grabs the pixels of a screen region of the target application.
type CapturePort interface {
	Capture(roi entity.Roi) (image.Image, error)
}

// InputPort injects simulated pointer and keyboard input into the target
// application. Only the action executor ever touches it.
type InputPort interface {
	MoveTo(x, y int) error
	MouseDown() error
	MouseUp() error

	// MoveBy moves the pointer relative to its current position over the
	// given duration. Used mid-gesture, between MouseDown and MouseUp.
	MoveBy(dx, dy int, over time.Duration) error

	// Chord issues a validated key combination as a single atomic chord.
	Chord(keys []string) error

	// ActiveWindowTitle reports the title of the window currently holding
	// input focus, used for the per-action focus check.
	ActiveWindowTitle() (string, error)

	Close() error
}
