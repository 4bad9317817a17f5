// Package metrics scores the similarity between a reference image and the
// current capture. Compute is pure: two in-memory images in, one immutable
// score set out.
package metrics

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"screen-agent/internal/domain/entity"
)

// The three raw metrics live on incompatible scales, so each is normalized
// into [0,1] before combination; an un-normalized average would be dominated
// by whichever metric has the largest numeric range.
const (
	weightStructural = 0.4
	weightHistogram  = 0.3
	weightColorDelta = 0.3

	// colorDeltaThreshold is the CIE76 distance treated as "no similarity
	// left": delta values at or above it normalize to 0.
	colorDeltaThreshold = 50.0

	histogramBins = 32

	// Standard SSIM stabilizers for 8-bit dynamic range.
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute resizes current to the reference dimensions when they differ, then
// produces structural similarity, histogram distance, perceptual color delta
// and their weighted overall score.
func (e *Engine) Compute(reference, current image.Image) entity.SimilarityMetrics {
	ref := imaging.Clone(reference)
	cur := imaging.Clone(current)

	rb, cb := ref.Bounds(), cur.Bounds()
	if rb.Dx() != cb.Dx() || rb.Dy() != cb.Dy() {
		cur = imaging.Resize(cur, rb.Dx(), rb.Dy(), imaging.Linear)
	}

	refLuma := luminance(ref)
	curLuma := luminance(cur)

	structural := ssim(refLuma, curLuma)
	histDist := histogramDistance(refLuma, curLuma)
	colorDelta := meanDeltaE(ref, cur)

	return entity.SimilarityMetrics{
		Structural:        structural,
		HistogramDistance: histDist,
		ColorDelta:        colorDelta,
		Overall:           overall(structural, histDist, colorDelta),
	}
}

// overall combines the normalized component scores with the fixed weights.
func overall(structural, histDist, colorDelta float64) float64 {
	structuralScore := clamp01(structural)
	histScore := clamp01(1 - histDist)
	colorScore := clamp01(1 - colorDelta/colorDeltaThreshold)
	return weightStructural*structuralScore + weightHistogram*histScore + weightColorDelta*colorScore
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// luminance flattens an image into per-pixel Rec. 601 luma values.
func luminance(img *image.NRGBA) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			bb := float64(row[x*4+2])
			out = append(out, 0.299*r+0.587*g+0.114*bb)
		}
	}
	return out
}

// ssim computes a single global structural-similarity value over the two luma
// planes. Both planes have equal length by construction.
func ssim(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 {
		return 0
	}

	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var varA, varB, covar float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		varA += da * da
		varB += db * db
		covar += da * db
	}
	varA /= n
	varB /= n
	covar /= n

	num := (2*meanA*meanB + ssimC1) * (2*covar + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return clamp01(num / den)
}

// histogramDistance is the L2 distance between density-normalized luma
// histograms. Unbounded above; the normalization in overall saturates at 1.
func histogramDistance(a, b []float64) float64 {
	ha := histogram(a)
	hb := histogram(b)
	var sum float64
	for i := range ha {
		d := ha[i] - hb[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func histogram(values []float64) [histogramBins]float64 {
	var bins [histogramBins]float64
	if len(values) == 0 {
		return bins
	}
	for _, v := range values {
		idx := int(v / 256 * histogramBins)
		if idx >= histogramBins {
			idx = histogramBins - 1
		}
		bins[idx]++
	}
	total := float64(len(values))
	for i := range bins {
		bins[i] /= total
	}
	return bins
}

// meanDeltaE averages the CIE76 color difference across all pixel pairs.
func meanDeltaE(a, b *image.NRGBA) float64 {
	bounds := a.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum float64
	for y := 0; y < h; y++ {
		rowA := a.Pix[y*a.Stride:]
		rowB := b.Pix[y*b.Stride:]
		for x := 0; x < w; x++ {
			la, aa, ba := rgbToLab(rowA[x*4], rowA[x*4+1], rowA[x*4+2])
			lb, ab, bb := rgbToLab(rowB[x*4], rowB[x*4+1], rowB[x*4+2])
			dl := la - lb
			da := aa - ab
			db := ba - bb
			sum += math.Sqrt(dl*dl + da*da + db*db)
		}
	}
	return sum / float64(w*h)
}

// rgbToLab converts an 8-bit sRGB triple to CIE L*a*b* under the D65 white
// point.
func rgbToLab(r8, g8, b8 uint8) (l, a, b float64) {
	r := srgbToLinear(float64(r8) / 255)
	g := srgbToLinear(float64(g8) / 255)
	bl := srgbToLinear(float64(b8) / 255)

	x := 0.4124564*r + 0.3575761*g + 0.1804375*bl
	y := 0.2126729*r + 0.7151522*g + 0.0721750*bl
	z := 0.0193339*r + 0.1191920*g + 0.9503041*bl

	// D65 reference white.
	fx := labF(x / 0.95047)
	fy := labF(y / 1.00000)
	fz := labF(z / 1.08883)

	l = 116*fy - 16
	a = 500 * (fx - fy)
	b = 200 * (fy - fz)
	return l, a, b
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}
