// Package prompts renders the proposer's system and user messages from
// embedded templates and the loaded calibration catalog.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"screen-agent/internal/domain/entity"
)

//go:embed system.txt
var systemTemplate string

type systemData struct {
	Targets    []entity.TargetCatalogEntry
	MaxActions int
}

// SystemPrompt renders the system message listing every registered target the
// model may reference.
func SystemPrompt(catalog []entity.TargetCatalogEntry, maxActions int) (string, error) {
	tmpl, err := template.New("system").Parse(systemTemplate)
	if err != nil {
		return "", fmt.Errorf("parse system template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, systemData{Targets: catalog, MaxActions: maxActions}); err != nil {
		return "", fmt.Errorf("render system template: %w", err)
	}
	return buf.String(), nil
}

// UserMessage builds the per-iteration text portion of the request: metrics,
// current control values and any operator instructions. The images travel as
// separate attachment parts.
func UserMessage(pc entity.ProposeContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Similarity metrics (1.0 = identical):\n")
	fmt.Fprintf(&b, "- overall: %.4f\n", pc.Metrics.Overall)
	fmt.Fprintf(&b, "- structural: %.4f\n", pc.Metrics.Structural)
	fmt.Fprintf(&b, "- histogram distance: %.4f\n", pc.Metrics.HistogramDistance)
	fmt.Fprintf(&b, "- mean color delta: %.2f\n", pc.Metrics.ColorDelta)

	if len(pc.CurrentState) > 0 {
		b.WriteString("\nCurrent control values:\n")
		for _, ent := range pc.Catalog {
			if v, ok := pc.CurrentState[ent.Name]; ok {
				fmt.Fprintf(&b, "- %s: %.4f\n", ent.Name, v)
			}
		}
	}

	if pc.Instructions != "" {
		fmt.Fprintf(&b, "\nOperator instructions: %s\n", pc.Instructions)
	}

	b.WriteString("\nThe first image is the REFERENCE, the second is the CURRENT state. Respond with the JSON object only.")
	return b.String()
}
