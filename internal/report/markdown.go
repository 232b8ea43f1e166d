package report

import (
	"context"
	"fmt"
	"io"

	"github.com/guimove/capsim/internal/model"
)

// MarkdownReporter outputs summaries as a GitHub-flavored markdown table.
type MarkdownReporter struct {
	w io.Writer
}

func (r *MarkdownReporter) Report(ctx context.Context, entries []model.Summary, meta Meta) error {
	title := "Simulation"
	if meta.Parameter != "" {
		title = "Sweep over `" + meta.Parameter + "`"
	}
	fmt.Fprintf(r.w, "## capsim: %s\n\n", title)
	fmt.Fprintf(r.w, "- **Mode:** %s\n", meta.Mode)
	fmt.Fprintf(r.w, "- **Node source:** %s\n", meta.NodeSource)
	if meta.Calibration != "" {
		fmt.Fprintf(r.w, "- **Calibrated from:** %s\n", meta.Calibration)
	}
	fmt.Fprintf(r.w, "\n")

	if len(entries) == 0 {
		fmt.Fprintf(r.w, "_No results available._\n")
		return nil
	}

	fmt.Fprintf(r.w, "| Rank | Configuration | Node | Trials | Nodes (95%% CI) | Pods/core | P(mem) | P(cpu) | $/month |\n")
	fmt.Fprintf(r.w, "|---:|---|---|---:|---:|---:|---:|---:|---:|\n")
	for _, e := range entries {
		cost := "-"
		if e.MonthlyCost > 0 {
			cost = fmt.Sprintf("%.0f", e.MonthlyCost)
		}
		fmt.Fprintf(r.w, "| %d | %s | %s | %s | %.2f (%.2f..%.2f) | %.3f | %s | %s | %s |\n",
			e.Rank, e.Label, nodeShape(e), trials(e),
			e.MeanNodeCount, e.NodeCountCI.Low, e.NodeCountCI.High,
			e.PackingRate, percent(e.ProbMemOverflow), percent(e.ProbCPUOverflow), cost)
	}

	for _, e := range entries {
		if len(e.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(r.w, "\n**%s**\n\n", e.Label)
		for _, w := range e.Warnings {
			fmt.Fprintf(r.w, "- %s\n", w)
		}
	}
	return nil
}
