// Package rodtarget drives a browser-hosted grading application over the
// DevTools protocol: captures are clipped page screenshots, input goes
// through the page's virtual mouse and keyboard.
package rodtarget

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var (
	_ output.CapturePort = (*Adapter)(nil)
	_ output.InputPort   = (*Adapter)(nil)
)

// moveSteps splits a timed relative move into intermediate mouse events.
const moveStepInterval = 10 * time.Millisecond

type Adapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page

	mu   sync.Mutex
	posX float64
	posY float64
}

type Config struct {
	// URL of the hosted application to attach to.
	URL      string
	Headless bool
}

func New(cfg Config) (*Adapter, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open %s: %w", cfg.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("load %s: %w", cfg.URL, err)
	}

	return &Adapter{
		browser:  browser,
		launcher: l,
		page:     page,
	}, nil
}

func (a *Adapter) Capture(roi entity.Roi) (image.Image, error) {
	imgBytes, err := a.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(90),
		Clip: &proto.PageViewport{
			X:      float64(roi.X),
			Y:      float64(roi.Y),
			Width:  float64(roi.Width),
			Height: float64(roi.Height),
			Scale:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	return img, nil
}

func (a *Adapter) MoveTo(x, y int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.page.Mouse.MoveTo(proto.NewPoint(float64(x), float64(y))); err != nil {
		return fmt.Errorf("mouse move failed: %w", err)
	}
	a.posX, a.posY = float64(x), float64(y)
	return nil
}

func (a *Adapter) MouseDown() error {
	return a.page.Mouse.Down(proto.InputMouseButtonLeft, 1)
}

func (a *Adapter) MouseUp() error {
	return a.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (a *Adapter) MoveBy(dx, dy int, over time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	steps := int(over / moveStepInterval)
	if steps < 1 {
		steps = 1
	}
	targetX := a.posX + float64(dx)
	targetY := a.posY + float64(dy)

	for s := 1; s <= steps; s++ {
		x := a.posX + (targetX-a.posX)*float64(s)/float64(steps)
		y := a.posY + (targetY-a.posY)*float64(s)/float64(steps)
		if err := a.page.Mouse.MoveTo(proto.NewPoint(x, y)); err != nil {
			return fmt.Errorf("mouse move failed: %w", err)
		}
		if s < steps {
			time.Sleep(moveStepInterval)
		}
	}
	a.posX, a.posY = targetX, targetY
	return nil
}

func (a *Adapter) Chord(keys []string) error {
	mapped := make([]input.Key, 0, len(keys))
	for _, k := range keys {
		key, ok := keyMap[k]
		if !ok {
			return fmt.Errorf("unmapped key %q", k)
		}
		mapped = append(mapped, key)
	}
	if len(mapped) == 0 {
		return fmt.Errorf("empty chord")
	}

	actions := a.page.KeyActions()
	for _, key := range mapped[:len(mapped)-1] {
		actions = actions.Press(key)
	}
	return actions.Type(mapped[len(mapped)-1]).Do()
}

func (a *Adapter) ActiveWindowTitle() (string, error) {
	info, err := a.page.Info()
	if err != nil {
		return "", fmt.Errorf("page info failed: %w", err)
	}
	return info.Title, nil
}

func (a *Adapter) Close() error {
	err := a.browser.Close()
	a.launcher.Cleanup()
	return err
}

var keyMap = map[string]input.Key{
	"ctrl":   input.ControlLeft,
	"cmd":    input.MetaLeft,
	"shift":  input.ShiftLeft,
	"alt":    input.AltLeft,
	"z":      input.KeyZ,
	"y":      input.KeyY,
	"tab":    input.Tab,
	"enter":  input.Enter,
	"escape": input.Escape,
	"up":     input.ArrowUp,
	"down":   input.ArrowDown,
	"left":   input.ArrowLeft,
	"right":  input.ArrowRight,
}
