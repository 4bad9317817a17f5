package entity

// SimilarityMetrics is the per-capture-pair similarity score set.
// Structural and Overall are normalized to [0,1] (higher = more similar);
// HistogramDistance and ColorDelta are raw, unbounded distances.
type SimilarityMetrics struct {
	Structural        float64 `json:"structural"`
	HistogramDistance float64 `json:"histogramDistance"`
	ColorDelta        float64 `json:"colorDelta"`
	Overall           float64 `json:"overall"`
}
