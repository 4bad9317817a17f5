// Package integration exercises the full iteration loop: real state machine,
// metrics engine, validator, executor and session store, with a scripted
// proposer and an in-memory target.
package integration

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/session"
	"screen-agent/internal/usecase/agent"
	"screen-agent/internal/usecase/statemachine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// virtualTarget simulates a screen whose brightness the agent adjusts. Slider
// actions brighten or darken the frame returned by the next capture.
type virtualTarget struct {
	mu         sync.Mutex
	brightness float64 // 0..1
}

func (v *virtualTarget) frame() image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	level := v.brightness
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	c := color.NRGBA{R: uint8(level * 255), G: uint8(level * 255), B: uint8(level * 255), A: 255}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func (v *virtualTarget) Capture(roi entity.Roi) (image.Image, error) {
	return v.frame(), nil
}

// virtualTarget also serves as the input device: slider drags change
// brightness proportionally to the horizontal travel.
func (v *virtualTarget) MoveTo(x, y int) error { return nil }
func (v *virtualTarget) MouseDown() error      { return nil }
func (v *virtualTarget) MouseUp() error        { return nil }
func (v *virtualTarget) MoveBy(dx, dy int, over time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.brightness += float64(dx) / 200.0
	return nil
}
func (v *virtualTarget) Chord(keys []string) error          { return nil }
func (v *virtualTarget) ActiveWindowTitle() (string, error) { return "", nil }
func (v *virtualTarget) Close() error                       { return nil }

type calibrationStub struct {
	reference image.Image
}

func (c *calibrationStub) LoadIndex() (*entity.CalibrationIndex, error) {
	roi, err := entity.NewRoi(0, 0, 32, 32)
	if err != nil {
		return nil, err
	}
	return entity.NewCalibrationIndex(roi, []entity.CalibrationTarget{
		{Name: "brightness", X: 10, Y: 20, Kind: entity.TargetSlider, Ratio: 100, Min: 0, Max: 1, DefaultValue: 0.2},
	}, 1.5), nil
}

func (c *calibrationStub) LoadReference() (image.Image, error) {
	return c.reference, nil
}

// scriptedProposer raises brightness until the metrics look close, then stops.
type scriptedProposer struct {
	mu    sync.Mutex
	calls int
}

func (p *scriptedProposer) Propose(ctx context.Context, pc entity.ProposeContext) (*entity.ProposerResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if pc.Metrics.Overall > 0.97 {
		return &entity.ProposerResponse{Summary: "match reached", Stop: true, Confidence: 0.95}, nil
	}
	delta := 0.2
	return &entity.ProposerResponse{
		Summary:    "brighten",
		Confidence: 0.9,
		Actions: []entity.ActionProposal{
			{Type: "set_slider", Target: "brightness", Delta: &delta, Reason: "image darker than reference"},
		},
	}, nil
}

func (p *scriptedProposer) CheckConnection(ctx context.Context) error { return nil }

type nopUI struct{}

func (nopUI) ShowIteration(ctx context.Context, iteration int)                               {}
func (nopUI) ShowMetrics(ctx context.Context, label string, m entity.SimilarityMetrics)      {}
func (nopUI) ShowProposal(ctx context.Context, summary string, conf float64, n int)          {}
func (nopUI) ShowActionStart(ctx context.Context, a entity.Action)                           {}
func (nopUI) ShowActionRejected(ctx context.Context, p entity.ActionProposal, reason string) {}
func (nopUI) ShowStateChange(ctx context.Context, from, to entity.AgentState)                {}
func (nopUI) ShowError(ctx context.Context, err error)                                       {}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any)                        {}
func (nopLogger) Info(msg string, args ...any)                         {}
func (nopLogger) Warn(msg string, args ...any)                         {}
func (nopLogger) Error(msg string, args ...any)                        {}
func (l nopLogger) WithField(key string, value any) output.LoggerPort  { return l }
func (l nopLogger) WithFields(fields map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                                         { return nil }

func TestLoopDrivesVirtualTargetToReference(t *testing.T) {
	target := &virtualTarget{brightness: 0.2}
	reference := (&virtualTarget{brightness: 0.8}).frame()
	proposer := &scriptedProposer{}
	sessionsDir := t.TempDir()

	controller := agent.NewController(agent.Deps{
		Machine:     statemachine.New(),
		Capture:     target,
		Proposer:    proposer,
		Input:       target,
		Calibration: &calibrationStub{reference: reference},
		Sessions:    session.NewFactory(sessionsDir),
		UI:          nopUI{},
		Logger:      nopLogger{},
		Policy: entity.Policy{
			MaxPixelDelta:          100,
			MaxDx:                  200,
			MaxDy:                  200,
			MaxActionsPerIteration: 3,
			ConvergenceWindow:      5,
			ConvergenceThreshold:   0.001,
			MinConfidence:          0.3,
		},
	})

	ctx := context.Background()
	if err := controller.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := controller.Start(ctx, input.RunOptions{Continuous: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	controller.Wait()

	if got := controller.State(); got != entity.StateStopped {
		t.Fatalf("state = %s, want stopped", got)
	}

	// Each accepted slider delta of 0.2 travels 20px and the virtual target
	// brightens by 0.1 per drag, so multiple cycles must have run.
	if proposer.calls < 2 {
		t.Fatalf("proposer calls = %d, want several cycles", proposer.calls)
	}
	target.mu.Lock()
	brightness := target.brightness
	target.mu.Unlock()
	if brightness <= 0.2 {
		t.Fatalf("brightness = %v, target never adjusted", brightness)
	}

	// Session artifacts exist on disk.
	entries, err := os.ReadDir(sessionsDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("session dirs = %v (err %v)", entries, err)
	}
	sessionDir := filepath.Join(sessionsDir, entries[0].Name())
	if _, err := os.Stat(filepath.Join(sessionDir, "records.jsonl")); err != nil {
		t.Fatalf("records.jsonl missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sessionDir, "iter_001", "before.png")); err != nil {
		t.Fatalf("iteration capture missing: %v", err)
	}
}

func TestEmergencyStopSignalEndsRun(t *testing.T) {
	target := &virtualTarget{brightness: 0.0}
	reference := (&virtualTarget{brightness: 1.0}).frame()

	controller := agent.NewController(agent.Deps{
		Machine:     statemachine.New(),
		Capture:     target,
		Proposer:    &scriptedProposer{},
		Input:       target,
		Calibration: &calibrationStub{reference: reference},
		Sessions:    session.NewFactory(t.TempDir()),
		UI:          nopUI{},
		Logger:      nopLogger{},
		Policy: entity.Policy{
			MaxPixelDelta:          100,
			MaxDx:                  200,
			MaxDy:                  200,
			MaxActionsPerIteration: 3,
			ConvergenceWindow:      5,
			ConvergenceThreshold:   0.001,
			IterationDelay:         20 * time.Millisecond,
		},
	})

	ctx := context.Background()
	if err := controller.Configure(ctx); err != nil {
		t.Fatal(err)
	}
	if err := controller.Start(ctx, input.RunOptions{Continuous: true}); err != nil {
		t.Fatal(err)
	}

	// What the hotkey listener does on Esc.
	controller.Stop()
	controller.Wait()

	if got := controller.State(); got != entity.StateStopped {
		t.Fatalf("state = %s, want stopped", got)
	}
}
