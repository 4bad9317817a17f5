// Package calibration loads the controller profile: the capture region plus
// every named screen target the executor may act on.
package calibration

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sort"

	"github.com/disintegration/imaging"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var _ output.CalibrationPort = (*Loader)(nil)

// profileFile mirrors controllerConfig.json: targets grouped by control kind,
// coordinates in absolute screen pixels.
type profileFile struct {
	Roi struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"roi"`
	DragRatio float64                  `json:"dragRatio"`
	Sliders   map[string]profileEntry `json:"sliders"`
	Wheels    map[string]profileEntry `json:"wheels"`
	Keys      map[string]profileEntry `json:"keys"`
}

type profileEntry struct {
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Ratio        float64 `json:"ratio"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	DefaultValue float64 `json:"defaultValue"`
}

type Loader struct {
	profilePath   string
	referencePath string
}

func NewLoader(profilePath, referencePath string) *Loader {
	return &Loader{profilePath: profilePath, referencePath: referencePath}
}

func (l *Loader) LoadIndex() (*entity.CalibrationIndex, error) {
	data, err := os.ReadFile(l.profilePath)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", l.profilePath, err)
	}

	var file profileFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", l.profilePath, err)
	}

	roi, err := entity.NewRoi(file.Roi.X, file.Roi.Y, file.Roi.Width, file.Roi.Height)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", l.profilePath, err)
	}

	seen := make(map[string]struct{})
	var targets []entity.CalibrationTarget
	flatten := func(entries map[string]profileEntry, kind entity.TargetKind) error {
		for _, name := range sortedNames(entries) {
			if _, dup := seen[name]; dup {
				return fmt.Errorf("profile %s: duplicate target %q", l.profilePath, name)
			}
			seen[name] = struct{}{}
			e := entries[name]
			targets = append(targets, entity.CalibrationTarget{
				Name:         name,
				X:            e.X,
				Y:            e.Y,
				Kind:         kind,
				Ratio:        e.Ratio,
				Min:          e.Min,
				Max:          e.Max,
				DefaultValue: e.DefaultValue,
			})
		}
		return nil
	}
	if err := flatten(file.Sliders, entity.TargetSlider); err != nil {
		return nil, err
	}
	if err := flatten(file.Wheels, entity.TargetWheel); err != nil {
		return nil, err
	}
	if err := flatten(file.Keys, entity.TargetKey); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("profile %s: no targets defined", l.profilePath)
	}

	ratio := file.DragRatio
	if ratio <= 0 {
		ratio = 1.5
	}
	return entity.NewCalibrationIndex(roi, targets, ratio), nil
}

func (l *Loader) LoadReference() (image.Image, error) {
	img, err := imaging.Open(l.referencePath)
	if err != nil {
		return nil, fmt.Errorf("open reference %s: %w", l.referencePath, err)
	}
	return img, nil
}

func sortedNames(entries map[string]profileEntry) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	// Stable target order keeps the proposer catalog deterministic.
	sort.Strings(names)
	return names
}
