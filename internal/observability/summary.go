package observability

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/spec-kit/ticket-warehouse/internal/events"
)

// RenderSummary writes the per-step table of a run followed by a colored
// final status line.
func RenderSummary(w io.Writer, run events.RunPayload, failed *events.StepPayload) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Source", "Step", "Status", "Rows", "Skipped", "Duration"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, step := range run.Steps {
		status := color.GreenString("OK")
		if step.Error != "" {
			status = color.RedString("FAILED")
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			step.Source,
			step.Step,
			status,
			strconv.Itoa(step.Rows),
			strconv.Itoa(step.Skipped),
			step.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	if run.ExitCode == 0 {
		mode := ""
		if run.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintln(w, color.GreenString("✓ conformed %d source(s) in %s%s",
			len(run.Sources), run.Duration.Round(time.Millisecond), mode))
		return
	}

	if failed != nil {
		fmt.Fprintln(w, color.RedString("✗ step %s failed for %s (exit %d): %s",
			failed.Step, failed.Source, run.ExitCode, failed.Error))
		return
	}
	fmt.Fprintln(w, color.RedString("✗ run failed (exit %d): %s", run.ExitCode, run.Error))
}
