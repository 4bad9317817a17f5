package entity

import "fmt"

// Roi is a rectangular screen region in absolute pixel coordinates.
type Roi struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRoi rejects regions too small to capture or compare.
func NewRoi(x, y, width, height int) (Roi, error) {
	if width <= 1 || height <= 1 {
		return Roi{}, fmt.Errorf("%w: %dx%d", ErrRoiTooSmall, width, height)
	}
	return Roi{X: x, Y: y, Width: width, Height: height}, nil
}

type TargetKind string

const (
	TargetSlider TargetKind = "slider"
	TargetWheel  TargetKind = "wheel"
	TargetKey    TargetKind = "key"
)

// CalibrationTarget is a named, pre-registered screen location the executor
// is permitted to act on.
type CalibrationTarget struct {
	Name         string
	X            int
	Y            int
	Kind         TargetKind
	Ratio        float64 // pixels per unit of slider delta
	Min          float64
	Max          float64
	DefaultValue float64
}

// CalibrationIndex resolves logical target names to screen coordinates.
// Immutable after load; lookups never mutate state.
type CalibrationIndex struct {
	roi     Roi
	targets map[string]CalibrationTarget
	order   []string
	ratio   float64 // fallback when a slider carries no ratio of its own
}

func NewCalibrationIndex(roi Roi, targets []CalibrationTarget, defaultRatio float64) *CalibrationIndex {
	idx := &CalibrationIndex{
		roi:     roi,
		targets: make(map[string]CalibrationTarget, len(targets)),
		order:   make([]string, 0, len(targets)),
		ratio:   defaultRatio,
	}
	for _, t := range targets {
		if _, dup := idx.targets[t.Name]; dup {
			continue
		}
		idx.targets[t.Name] = t
		idx.order = append(idx.order, t.Name)
	}
	return idx
}

func (idx *CalibrationIndex) Roi() Roi {
	return idx.roi
}

func (idx *CalibrationIndex) Resolve(name string) (CalibrationTarget, bool) {
	t, ok := idx.targets[name]
	return t, ok
}

// RatioFor returns the delta-to-pixel ratio for a target, falling back to the
// profile-wide default when the target declares none.
func (idx *CalibrationIndex) RatioFor(t CalibrationTarget) float64 {
	if t.Ratio > 0 {
		return t.Ratio
	}
	return idx.ratio
}

// Names returns target names in load order.
func (idx *CalibrationIndex) Names() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

func (idx *CalibrationIndex) Len() int {
	return len(idx.targets)
}

// Catalog builds the target listing sent to the proposer: name, kind and
// declared value range per target.
func (idx *CalibrationIndex) Catalog() []TargetCatalogEntry {
	out := make([]TargetCatalogEntry, 0, len(idx.order))
	for _, name := range idx.order {
		t := idx.targets[name]
		out = append(out, TargetCatalogEntry{
			Name:         t.Name,
			Kind:         t.Kind,
			Min:          t.Min,
			Max:          t.Max,
			DefaultValue: t.DefaultValue,
		})
	}
	return out
}

type TargetCatalogEntry struct {
	Name         string     `json:"name"`
	Kind         TargetKind `json:"kind"`
	Min          float64    `json:"min"`
	Max          float64    `json:"max"`
	DefaultValue float64    `json:"defaultValue"`
}
