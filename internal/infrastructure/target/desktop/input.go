package desktop

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"screen-agent/internal/application/port/output"
)

var _ output.InputPort = (*Input)(nil)

// moveStepInterval spaces the sub-movements of a timed relative move.
const moveStepInterval = 10 * time.Millisecond

var modifierKeys = map[string]struct{}{
	"ctrl": {}, "cmd": {}, "shift": {}, "alt": {},
}

type Input struct{}

func NewInput() *Input {
	return &Input{}
}

func (i *Input) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (i *Input) MouseDown() error {
	return robotgo.Toggle("left")
}

func (i *Input) MouseUp() error {
	return robotgo.Toggle("left", "up")
}

// MoveBy performs a relative move spread over the given duration, so the
// target application registers it as a drag rather than a jump.
func (i *Input) MoveBy(dx, dy int, over time.Duration) error {
	steps := int(over / moveStepInterval)
	if steps < 1 {
		steps = 1
	}

	movedX, movedY := 0, 0
	for s := 1; s <= steps; s++ {
		targetX := dx * s / steps
		targetY := dy * s / steps
		robotgo.MoveRelative(targetX-movedX, targetY-movedY)
		movedX, movedY = targetX, targetY
		if s < steps {
			time.Sleep(moveStepInterval)
		}
	}
	return nil
}

// Chord taps the final key with the rest as held modifiers.
func (i *Input) Chord(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("empty chord")
	}

	main := ""
	modifiers := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		if _, isMod := modifierKeys[k]; isMod {
			modifiers = append(modifiers, k)
			continue
		}
		if main != "" {
			return fmt.Errorf("chord has multiple non-modifier keys: %q and %q", main, k)
		}
		main = k
	}
	if main == "" {
		// A pure modifier chord taps the last one.
		main = keys[len(keys)-1]
		modifiers = modifiers[:len(modifiers)-1]
	}
	return robotgo.KeyTap(main, modifiers...)
}

func (i *Input) ActiveWindowTitle() (string, error) {
	return robotgo.GetTitle(), nil
}

func (i *Input) Close() error {
	return nil
}
