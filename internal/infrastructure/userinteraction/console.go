package userinteraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

type ConsoleUserInteraction struct{}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return &ConsoleUserInteraction{}
}

func (u *ConsoleUserInteraction) ShowIteration(ctx context.Context, iteration int) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n━━━ Iteration %d ━━━\n", iteration)
}

func (u *ConsoleUserInteraction) ShowMetrics(ctx context.Context, label string, m entity.SimilarityMetrics) {
	dim := color.New(color.Faint)
	dim.Printf("   [%s] overall %.4f | structural %.4f | histogram %.4f | Δcolor %.2f\n",
		label, m.Overall, m.Structural, m.HistogramDistance, m.ColorDelta)
}

func (u *ConsoleUserInteraction) ShowProposal(ctx context.Context, summary string, confidence float64, actionCount int) {
	blue := color.New(color.FgBlue)
	blue.Printf("\n💭 %s\n", truncate(summary, 200))

	dim := color.New(color.Faint)
	dim.Printf("   confidence %.2f, %d action(s)\n", confidence, actionCount)
}

func (u *ConsoleUserInteraction) ShowActionStart(ctx context.Context, a entity.Action) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n%s %s\n", actionIcon(a.Type), a.Type)

	dim := color.New(color.Faint)
	dim.Printf("   %s\n", describeAction(a))
}

func (u *ConsoleUserInteraction) ShowActionRejected(ctx context.Context, p entity.ActionProposal, reason string) {
	red := color.New(color.FgRed)
	red.Printf("✗ rejected %s on %q: ", p.Type, p.Target)

	dim := color.New(color.Faint)
	dim.Println(truncate(reason, 120))
}

func (u *ConsoleUserInteraction) ShowStateChange(ctx context.Context, from, to entity.AgentState) {
	magenta := color.New(color.FgMagenta)
	magenta.Printf("\n● %s → %s\n", from, to)
}

func (u *ConsoleUserInteraction) ShowError(ctx context.Context, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("\n❌ %v\n", err)
}

func actionIcon(t entity.ActionType) string {
	switch t {
	case entity.ActionSetSlider:
		return "🎚️"
	case entity.ActionDrag:
		return "🖱️"
	case entity.ActionKeypress:
		return "⌨️"
	}
	return "🔧"
}

func describeAction(a entity.Action) string {
	switch a.Type {
	case entity.ActionSetSlider:
		return fmt.Sprintf("%s: delta %+.4f (%+.0fpx)", a.Target.Name, a.Delta, a.PixelDX)
	case entity.ActionDrag:
		return fmt.Sprintf("%s: dx %+.0f dy %+.0f", a.Target.Name, a.PixelDX, a.PixelDY)
	case entity.ActionKeypress:
		return fmt.Sprintf("%s: %s", a.Target.Name, strings.Join(a.Keys, "+"))
	}
	return a.Target.Name
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
