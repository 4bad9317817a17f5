package metrics

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestIdenticalImagesScoreNearMax(t *testing.T) {
	e := NewEngine()
	img := gradient(64, 48)

	m := e.Compute(img, img)

	if m.Overall < 0.99 {
		t.Errorf("overall = %v, want near 1 for identical images", m.Overall)
	}
	if m.Structural < 0.99 {
		t.Errorf("structural = %v, want near 1", m.Structural)
	}
	if m.HistogramDistance > 1e-9 {
		t.Errorf("histogramDistance = %v, want 0", m.HistogramDistance)
	}
	if m.ColorDelta > 1e-9 {
		t.Errorf("colorDelta = %v, want 0", m.ColorDelta)
	}
}

func TestOppositeImagesScoreLow(t *testing.T) {
	e := NewEngine()
	black := solid(32, 32, color.NRGBA{A: 255})
	white := solid(32, 32, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	m := e.Compute(black, white)

	if m.Overall > 0.3 {
		t.Errorf("overall = %v, want low for black vs white", m.Overall)
	}
	if m.ColorDelta < colorDeltaThreshold {
		t.Errorf("colorDelta = %v, want >= %v for black vs white", m.ColorDelta, colorDeltaThreshold)
	}
}

func TestOverallStaysInUnitRange(t *testing.T) {
	cases := []struct{ s, h, d float64 }{
		{1, 0, 0},
		{0, 10, 500},
		{0.5, 0.5, 25},
		{-1, -1, -1},
	}
	for _, tc := range cases {
		got := overall(tc.s, tc.h, tc.d)
		if got < 0 || got > 1 {
			t.Errorf("overall(%v,%v,%v) = %v, out of [0,1]", tc.s, tc.h, tc.d, got)
		}
	}
}

func TestOverallWeights(t *testing.T) {
	if w := weightStructural + weightHistogram + weightColorDelta; math.Abs(w-1) > 1e-9 {
		t.Fatalf("weights sum to %v, want 1", w)
	}
	// A perfect structural score alone contributes exactly its weight.
	if got := overall(1, 10, 500); math.Abs(got-weightStructural) > 1e-9 {
		t.Errorf("overall(1, worst, worst) = %v, want %v", got, weightStructural)
	}
}

func TestMismatchedSizesAreAligned(t *testing.T) {
	e := NewEngine()
	ref := gradient(64, 48)
	cur := gradient(128, 96)

	m := e.Compute(ref, cur)

	// Same content at a different scale should remain highly similar.
	if m.Overall < 0.9 {
		t.Errorf("overall = %v, want high for rescaled identical content", m.Overall)
	}
}

func TestComputeIsPure(t *testing.T) {
	e := NewEngine()
	ref := gradient(32, 32)
	cur := solid(32, 32, color.NRGBA{R: 120, G: 60, B: 200, A: 255})

	first := e.Compute(ref, cur)
	second := e.Compute(ref, cur)

	if first != second {
		t.Errorf("same inputs produced different metrics: %+v vs %+v", first, second)
	}
}

func TestHistogramDistanceSeparatesDistributions(t *testing.T) {
	dark := make([]float64, 100)
	light := make([]float64, 100)
	for i := range light {
		light[i] = 250
	}
	if d := histogramDistance(dark, light); d < 1 {
		t.Errorf("distance = %v, want large for disjoint histograms", d)
	}
	if d := histogramDistance(light, light); d != 0 {
		t.Errorf("distance = %v, want 0 for identical histograms", d)
	}
}
