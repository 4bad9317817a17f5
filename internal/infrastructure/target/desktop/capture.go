// Package desktop drives a native application: screen capture via the OS
// screenshot API and input injection via robotgo.
package desktop

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var _ output.CapturePort = (*Capturer)(nil)

type Capturer struct{}

func NewCapturer() *Capturer {
	return &Capturer{}
}

func (c *Capturer) Capture(roi entity.Roi) (image.Image, error) {
	rect := image.Rect(roi.X, roi.Y, roi.X+roi.Width, roi.Y+roi.Height)
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("capture %v: %w", rect, err)
	}
	return img, nil
}
