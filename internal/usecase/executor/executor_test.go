package executor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

// fakeInput records every injected event and can be scripted to fail or to
// report a foreign window title.
type fakeInput struct {
	events     []string
	title      string
	failMoveBy bool
	failChord  bool
}

func (f *fakeInput) MoveTo(x, y int) error {
	f.events = append(f.events, fmt.Sprintf("moveTo(%d,%d)", x, y))
	return nil
}

func (f *fakeInput) MouseDown() error {
	f.events = append(f.events, "down")
	return nil
}

func (f *fakeInput) MouseUp() error {
	f.events = append(f.events, "up")
	return nil
}

func (f *fakeInput) MoveBy(dx, dy int, over time.Duration) error {
	if f.failMoveBy {
		return errors.New("injection refused")
	}
	f.events = append(f.events, fmt.Sprintf("moveBy(%d,%d)", dx, dy))
	return nil
}

func (f *fakeInput) Chord(keys []string) error {
	if f.failChord {
		return errors.New("chord refused")
	}
	f.events = append(f.events, fmt.Sprintf("chord(%v)", keys))
	return nil
}

func (f *fakeInput) ActiveWindowTitle() (string, error) {
	if f.title == "" {
		return "DaVinci Resolve - project", nil
	}
	return f.title, nil
}

func (f *fakeInput) Close() error { return nil }

type nopPort struct{}

func (nopPort) Debug(string, ...any)                          {}
func (nopPort) Info(string, ...any)                           {}
func (nopPort) Warn(string, ...any)                           {}
func (nopPort) Error(string, ...any)                          {}
func (nopPort) WithField(string, any) output.LoggerPort       { return nopPort{} }
func (nopPort) WithFields(map[string]any) output.LoggerPort   { return nopPort{} }
func (nopPort) Close() error                                  { return nil }

func testPolicy() entity.Policy {
	return entity.Policy{
		InterActionDelay: time.Millisecond,
		FocusTitle:       "DaVinci Resolve",
	}
}

func sliderAction(name string, pixels float64) entity.Action {
	return entity.Action{
		Type:    entity.ActionSetSlider,
		Target:  entity.CalibrationTarget{Name: name, X: 200, Y: 300, Kind: entity.TargetSlider},
		PixelDX: pixels,
	}
}

func keyAction(keys ...string) entity.Action {
	return entity.Action{
		Type:   entity.ActionKeypress,
		Target: entity.CalibrationTarget{Name: "roi_center", X: 10, Y: 10},
		Keys:   keys,
	}
}

func TestRunExecutesInOrder(t *testing.T) {
	input := &fakeInput{}
	e := newTestExecutor(input)

	actions := []entity.Action{sliderAction("contrast", 40), keyAction("ctrl", "z")}
	report := e.Run(actions, entity.NewCancelToken(), 10)

	if report.StoppedEarly || report.Err != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Executed) != 2 {
		t.Fatalf("executed %d actions, want 2", len(report.Executed))
	}

	want := []string{
		"moveTo(200,292)", // anchor y=300 minus the safety margin
		"down",
		"moveBy(3,0)",  // priming sub-movement
		"moveBy(37,0)", // remaining travel
		"up",
		"chord([ctrl z])",
	}
	if len(input.events) != len(want) {
		t.Fatalf("events = %v, want %v", input.events, want)
	}
	for i := range want {
		if input.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, input.events[i], want[i])
		}
	}
}

func TestNegativeSliderPrimesLeft(t *testing.T) {
	input := &fakeInput{}
	e := newTestExecutor(input)

	e.Run([]entity.Action{sliderAction("contrast", -40)}, entity.NewCancelToken(), 10)

	want := []string{"moveTo(200,292)", "down", "moveBy(-3,0)", "moveBy(-37,0)", "up"}
	for i := range want {
		if input.events[i] != want[i] {
			t.Fatalf("event %d = %q, want %q (all: %v)", i, input.events[i], want[i], input.events)
		}
	}
}

func TestDragGestureOmitsPriming(t *testing.T) {
	input := &fakeInput{}
	e := newTestExecutor(input)

	a := entity.Action{
		Type:    entity.ActionDrag,
		Target:  entity.CalibrationTarget{Name: "lift_wheel", X: 150, Y: 400},
		PixelDX: 20,
		PixelDY: -10,
	}
	e.Run([]entity.Action{a}, entity.NewCancelToken(), 10)

	want := []string{"moveTo(150,400)", "down", "moveBy(20,-10)", "up"}
	if len(input.events) != len(want) {
		t.Fatalf("events = %v, want %v", input.events, want)
	}
}

func TestMaxActionsCap(t *testing.T) {
	input := &fakeInput{}
	e := newTestExecutor(input)

	var actions []entity.Action
	for i := 0; i < 7; i++ {
		actions = append(actions, keyAction("z"))
	}
	report := e.Run(actions, entity.NewCancelToken(), 3)

	if len(report.Executed) != 3 {
		t.Fatalf("executed %d, want 3", len(report.Executed))
	}
	if !report.StoppedEarly {
		t.Error("expected stoppedEarly when the cap truncates the sequence")
	}
	if report.Err != nil {
		t.Errorf("cap is not an error: %v", report.Err)
	}
}

func TestCapEqualToLengthIsNotEarlyStop(t *testing.T) {
	e := newTestExecutor(&fakeInput{})
	report := e.Run([]entity.Action{keyAction("z"), keyAction("z")}, entity.NewCancelToken(), 2)
	if report.StoppedEarly || len(report.Executed) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCancellationBeforeFirstAction(t *testing.T) {
	input := &fakeInput{}
	e := newTestExecutor(input)

	token := entity.NewCancelToken()
	token.Signal()
	report := e.Run([]entity.Action{keyAction("z"), keyAction("z")}, token, 10)

	if len(report.Executed) != 0 {
		t.Fatalf("executed %d actions after cancellation, want 0", len(report.Executed))
	}
	if !report.StoppedEarly {
		t.Error("expected stoppedEarly")
	}
	if len(input.events) != 0 {
		t.Errorf("input received events after cancellation: %v", input.events)
	}
}

func TestFocusLossStopsRun(t *testing.T) {
	input := &fakeInput{title: "Google Chrome"}
	e := newTestExecutor(input)

	report := e.Run([]entity.Action{keyAction("z")}, entity.NewCancelToken(), 10)

	if !report.StoppedEarly {
		t.Error("expected stoppedEarly on focus loss")
	}
	var execErr *entity.ExecutionError
	if !errors.As(report.Err, &execErr) || !errors.Is(report.Err, entity.ErrFocusLost) {
		t.Fatalf("err = %v, want ExecutionError wrapping ErrFocusLost", report.Err)
	}
}

func TestEmptyFocusTitleDisablesCheck(t *testing.T) {
	input := &fakeInput{title: "Anything Else"}
	policy := testPolicy()
	policy.FocusTitle = ""
	e := New(input, nopPort{}, policy)

	report := e.Run([]entity.Action{keyAction("z")}, entity.NewCancelToken(), 10)
	if report.StoppedEarly {
		t.Fatalf("focus check should be disabled: %+v", report)
	}
}

func TestGestureFailureReleasesMouseAndHalts(t *testing.T) {
	input := &fakeInput{failMoveBy: true}
	e := newTestExecutor(input)

	actions := []entity.Action{sliderAction("contrast", 40), keyAction("z")}
	report := e.Run(actions, entity.NewCancelToken(), 10)

	if len(report.Executed) != 0 {
		t.Fatalf("failed action counted as executed: %+v", report.Executed)
	}
	if !report.StoppedEarly || report.Err == nil {
		t.Fatalf("expected early stop with error, got %+v", report)
	}
	// The button must not stay pressed after the failed travel.
	last := input.events[len(input.events)-1]
	if last != "up" {
		t.Errorf("last event = %q, want cleanup mouse release", last)
	}
}

func newTestExecutor(input *fakeInput) *Executor {
	return New(input, nopPort{}, testPolicy())
}
