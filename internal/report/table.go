package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guimove/capsim/internal/model"
)

// TableReporter outputs summaries as a formatted terminal table.
type TableReporter struct {
	w io.Writer
}

func (r *TableReporter) Report(ctx context.Context, entries []model.Summary, meta Meta) error {
	if meta.Parameter == "" && len(entries) == 1 {
		r.detail(entries[0], meta)
		return nil
	}

	fmt.Fprintf(r.w, "\n")
	fmt.Fprintf(r.w, "capsim sweep over %s\n", meta.Parameter)
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(r.w, "Mode:        %s\n", meta.Mode)
	fmt.Fprintf(r.w, "Node source: %s\n", meta.NodeSource)
	if meta.Calibration != "" {
		fmt.Fprintf(r.w, "Calibrated:  %s\n", meta.Calibration)
	}
	fmt.Fprintf(r.w, "%s\n\n", strings.Repeat("=", 60))

	if len(entries) == 0 {
		fmt.Fprintf(r.w, "No results available.\n")
		return nil
	}

	fmt.Fprintf(r.w, "%-4s %-20s %9s %9s %8s %8s %6s %9s %s\n",
		"Rank", "Configuration", "Nodes", "Pods/core", "P(mem)", "P(cpu)", "Score", "$/month", "Notes")
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("-", 100))

	for _, e := range entries {
		label := e.Label
		if len(label) > 20 {
			label = label[:17] + "..."
		}
		cost := "-"
		if e.MonthlyCost > 0 {
			cost = fmt.Sprintf("%.0f", e.MonthlyCost)
		}
		notes := ""
		if len(e.Warnings) > 0 {
			notes = fmt.Sprintf("[%d warnings]", len(e.Warnings))
		}
		fmt.Fprintf(r.w, "#%-3d %-20s %9.1f %9.2f %8s %8s %6.1f %9s %s\n",
			e.Rank,
			label,
			e.MeanNodeCount,
			e.PackingRate,
			percent(e.ProbMemOverflow),
			percent(e.ProbCPUOverflow),
			e.Score,
			cost,
			notes,
		)
	}
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("-", 100))

	top := entries[0]
	fmt.Fprintf(r.w, "\nBest: %s\n", top.Label)
	for _, w := range top.Warnings {
		fmt.Fprintf(r.w, "  - %s\n", w)
	}
	fmt.Fprintf(r.w, "\n")
	return nil
}

func (r *TableReporter) detail(e model.Summary, meta Meta) {
	fmt.Fprintf(r.w, "\n")
	fmt.Fprintf(r.w, "capsim simulation\n")
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(r.w, "Mode:        %s\n", meta.Mode)
	fmt.Fprintf(r.w, "Node:        %s (%s)\n", nodeShape(e), meta.NodeSource)
	fmt.Fprintf(r.w, "Workloads:   %d (%d active)\n", e.TotalCount, e.ActiveCount)
	if meta.Calibration != "" {
		fmt.Fprintf(r.w, "Calibrated:  %s\n", meta.Calibration)
	}
	fmt.Fprintf(r.w, "Trials:      %s, seed %d, %s\n", trials(e), e.Seed, e.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.w, "%s\n\n", strings.Repeat("=", 60))

	fmt.Fprintf(r.w, "  Nodes:             %.2f (95%% CI %.2f..%.2f, min %d, max %d)\n",
		e.MeanNodeCount, e.NodeCountCI.Low, e.NodeCountCI.High, e.MinNodeCount, e.MaxNodeCount)
	fmt.Fprintf(r.w, "  Packing rate:      %.3f workloads per node per core\n", e.PackingRate)
	fmt.Fprintf(r.w, "  Memory overflow:   %s of nodes, %.2f nodes per trial, %s of trials\n",
		percent(e.MeanMemOverflow), e.MeanOverflowMemNodes, percent(e.ProbMemOverflow))
	fmt.Fprintf(r.w, "  CPU overflow:      %s of nodes, %.2f nodes per trial, %s of trials\n",
		percent(e.MeanCPUOverflow), e.MeanOverflowCPUNodes, percent(e.ProbCPUOverflow))
	if e.MonthlyCost > 0 {
		fmt.Fprintf(r.w, "  Monthly cost:      $%.0f at $%.4f/h per node\n", e.MonthlyCost, e.PricePerHour)
	}
	if f := e.Fragmentation; f != nil {
		fmt.Fprintf(r.w, "  Stranded:          %.1f CPU, %.1f GiB\n", f.StrandedCPU, f.StrandedMem)
		fmt.Fprintf(r.w, "  Balance score:     %.2f\n", f.ResourceBalanceScore)
	}

	if len(e.Warnings) > 0 {
		fmt.Fprintf(r.w, "\n  Warnings:\n")
		for _, w := range e.Warnings {
			fmt.Fprintf(r.w, "    - %s\n", w)
		}
	}
	fmt.Fprintf(r.w, "\n")
}
