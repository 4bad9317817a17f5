package validator

import (
	"errors"
	"math"
	"testing"

	"screen-agent/internal/domain/entity"
)

func testIndex() *entity.CalibrationIndex {
	roi, _ := entity.NewRoi(100, 100, 400, 300)
	return entity.NewCalibrationIndex(roi, []entity.CalibrationTarget{
		{Name: "contrast", X: 210, Y: 330, Kind: entity.TargetSlider, Ratio: 2.0, Min: 0, Max: 100, DefaultValue: 50},
		{Name: "saturation", X: 210, Y: 360, Kind: entity.TargetSlider, Min: 0, Max: 100, DefaultValue: 50},
		{Name: "lift_wheel", X: 250, Y: 420, Kind: entity.TargetWheel},
		{Name: "roi_center", X: 300, Y: 250, Kind: entity.TargetKey},
	}, 1.5)
}

func testPolicy() entity.Policy {
	return entity.Policy{
		MaxPixelDelta: 150,
		MaxDx:         200,
		MaxDy:         200,
		AllowedKeys:   entity.AllowKeys([]string{"ctrl", "z", "shift", "enter"}),
	}
}

func f(v float64) *float64 { return &v }

func reasonOf(t *testing.T, err error) entity.RejectionReason {
	t.Helper()
	var verr *entity.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type %T, want ValidationError", err)
	}
	return verr.Reason
}

func TestUnknownTargetRejectedForEveryType(t *testing.T) {
	idx, policy := testIndex(), testPolicy()
	for _, typ := range []string{"set_slider", "drag", "keypress", "nonsense"} {
		p := entity.ActionProposal{Type: typ, Target: "exposure", Delta: f(1), DX: f(1), DY: f(1), Keys: []string{"z"}}
		_, err := Validate(p, idx, policy)
		if got := reasonOf(t, err); got != entity.RejectionUnknownTarget {
			t.Errorf("type %s: reason = %s, want UnknownTarget", typ, got)
		}
	}
}

func TestSetSliderResolvesPixelDelta(t *testing.T) {
	idx, policy := testIndex(), testPolicy()

	a, err := Validate(entity.ActionProposal{Type: "set_slider", Target: "contrast", Delta: f(-30), Reason: "darken"}, idx, policy)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if a.Type != entity.ActionSetSlider || a.Target.Name != "contrast" {
		t.Fatalf("unexpected action %+v", a)
	}
	if a.PixelDX != -60 { // delta -30 * ratio 2.0
		t.Errorf("PixelDX = %v, want -60", a.PixelDX)
	}

	// saturation has no per-target ratio, falls back to the default 1.5
	a, err = Validate(entity.ActionProposal{Type: "set_slider", Target: "saturation", Delta: f(10)}, idx, policy)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if a.PixelDX != 15 {
		t.Errorf("PixelDX = %v, want 15", a.PixelDX)
	}
}

func TestSetSliderOutOfRange(t *testing.T) {
	idx, policy := testIndex(), testPolicy()
	cases := []*float64{
		f(80),  // 80 * 2.0 = 160 px > 150
		f(-76), // magnitude check is symmetric
		nil,
		f(math.NaN()),
		f(math.Inf(1)),
	}
	for i, delta := range cases {
		p := entity.ActionProposal{Type: "set_slider", Target: "contrast", Delta: delta}
		a, err := Validate(p, idx, policy)
		if got := reasonOf(t, err); got != entity.RejectionOutOfRange {
			t.Errorf("case %d: reason = %s, want OutOfRange", i, got)
		}
		if a.Type != "" || a.Target.Name != "" || a.PixelDX != 0 {
			t.Errorf("case %d: rejection produced a non-zero action", i)
		}
	}
}

func TestSetSliderBoundaryIsAccepted(t *testing.T) {
	idx, policy := testIndex(), testPolicy()
	// 75 * 2.0 = exactly MaxPixelDelta; the limit is inclusive.
	if _, err := Validate(entity.ActionProposal{Type: "set_slider", Target: "contrast", Delta: f(75)}, idx, policy); err != nil {
		t.Fatalf("boundary delta rejected: %v", err)
	}
}

func TestDragLimits(t *testing.T) {
	idx, policy := testIndex(), testPolicy()

	a, err := Validate(entity.ActionProposal{Type: "drag", Target: "lift_wheel", DX: f(40), DY: f(-25)}, idx, policy)
	if err != nil {
		t.Fatalf("valid drag rejected: %v", err)
	}
	if a.PixelDX != 40 || a.PixelDY != -25 {
		t.Errorf("pixel deltas = (%v,%v), want (40,-25)", a.PixelDX, a.PixelDY)
	}

	rejects := []entity.ActionProposal{
		{Type: "drag", Target: "lift_wheel", DX: f(5000), DY: f(0)},
		{Type: "drag", Target: "lift_wheel", DX: f(0), DY: f(-201)},
		{Type: "drag", Target: "lift_wheel", DX: f(10)}, // dy missing
		{Type: "drag", Target: "lift_wheel"},
	}
	for i, p := range rejects {
		_, err := Validate(p, idx, policy)
		if got := reasonOf(t, err); got != entity.RejectionOutOfRange {
			t.Errorf("case %d: reason = %s, want OutOfRange", i, got)
		}
	}
}

func TestKeypressAllowList(t *testing.T) {
	idx, policy := testIndex(), testPolicy()

	a, err := Validate(entity.ActionProposal{Type: "keypress", Target: "roi_center", Keys: []string{"ctrl", "z"}}, idx, policy)
	if err != nil {
		t.Fatalf("allowed chord rejected: %v", err)
	}
	if len(a.Keys) != 2 {
		t.Fatalf("keys = %v", a.Keys)
	}

	rejects := [][]string{
		nil,
		{},
		{"f13"},
		{"ctrl", "q"},          // one bad key poisons the chord
		{"ctrl", "alt", "del"}, // alt not in this policy
	}
	for i, keys := range rejects {
		_, err := Validate(entity.ActionProposal{Type: "keypress", Target: "roi_center", Keys: keys}, idx, policy)
		if got := reasonOf(t, err); got != entity.RejectionDisallowedKeys {
			t.Errorf("case %d (%v): reason = %s, want DisallowedKeys", i, keys, got)
		}
	}
}

func TestKeypressIsCaseInsensitive(t *testing.T) {
	idx, policy := testIndex(), testPolicy()
	if _, err := Validate(entity.ActionProposal{Type: "keypress", Target: "roi_center", Keys: []string{"Ctrl", "Z"}}, idx, policy); err != nil {
		t.Fatalf("case variant rejected: %v", err)
	}
}

func TestUnknownActionType(t *testing.T) {
	idx, policy := testIndex(), testPolicy()
	for _, typ := range []string{"scroll", "click", ""} {
		_, err := Validate(entity.ActionProposal{Type: typ, Target: "contrast"}, idx, policy)
		if got := reasonOf(t, err); got != entity.RejectionUnknownActionType {
			t.Errorf("type %q: reason = %s, want UnknownActionType", typ, got)
		}
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	idx, policy := testIndex(), testPolicy()
	p := entity.ActionProposal{Type: "set_slider", Target: "contrast", Delta: f(12.5), Reason: "same in, same out"}
	first, err1 := Validate(p, idx, policy)
	second, err2 := Validate(p, idx, policy)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if first.PixelDX != second.PixelDX || first.Delta != second.Delta || first.Target != second.Target {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}
