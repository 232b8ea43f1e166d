package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/guimove/capsim/internal/model"
)

// CSVReporter outputs one row per summary.
type CSVReporter struct {
	w io.Writer
}

var csvHeader = []string{
	"rank", "label", "mode", "max_cpu", "max_mem", "total_count", "active_count",
	"trials", "partial", "seed", "mean_node_count", "node_count_ci_low", "node_count_ci_high",
	"packing_rate", "mean_mem_overflow", "mean_cpu_overflow", "prob_mem_overflow",
	"prob_cpu_overflow", "monthly_cost", "score", "warnings",
}

func (r *CSVReporter) Report(ctx context.Context, entries []model.Summary, meta Meta) error {
	cw := csv.NewWriter(r.w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			strconv.Itoa(e.Rank),
			e.Label,
			meta.Mode,
			formatFloat(e.MaxCPU),
			formatFloat(e.MaxMem),
			strconv.Itoa(e.TotalCount),
			strconv.Itoa(e.ActiveCount),
			strconv.Itoa(e.CompletedTrials),
			strconv.FormatBool(e.Partial),
			strconv.FormatUint(e.Seed, 10),
			formatFloat(e.MeanNodeCount),
			formatFloat(e.NodeCountCI.Low),
			formatFloat(e.NodeCountCI.High),
			formatFloat(e.PackingRate),
			formatFloat(e.MeanMemOverflow),
			formatFloat(e.MeanCPUOverflow),
			formatFloat(e.ProbMemOverflow),
			formatFloat(e.ProbCPUOverflow),
			formatFloat(e.MonthlyCost),
			formatFloat(e.Score),
			strings.Join(e.Warnings, "; "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV output: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
