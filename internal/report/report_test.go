package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guimove/capsim/internal/model"
)

func sampleEntries() []model.Summary {
	base := model.Summary{
		AggregateResult: model.AggregateResult{
			MeanNodeCount:   42.5,
			NodeCountCI:     model.Interval{Low: 41.9, High: 43.1},
			MinNodeCount:    40,
			MaxNodeCount:    45,
			ProbMemOverflow: 0.12,
			RequestedTrials: 100,
			CompletedTrials: 100,
			Seed:            7,
			Breakdowns: map[int][]model.NodeBreakdown{
				99: {{Requested: model.Resources{CPU: 3.5, Mem: 14}}},
			},
		},
		TotalCount:   10000,
		ActiveCount:  300,
		MaxCPU:       4,
		MaxMem:       16,
		PackingRate:  58.8,
		PricePerHour: 0.192,
		MonthlyCost:  0.192 * model.HoursPerMonth * 42.5,
		Fragmentation: &model.FragmentationReport{
			StrandedCPU:          3.5,
			ResourceBalanceScore: 0.8,
		},
		Warnings: []string{"memory overflow in 12.0% of trials"},
	}
	second := base
	second.Rank = 2
	second.MaxMem = 32
	second.Warnings = nil
	second.Label = "max-mem=32"
	base.Rank = 1
	base.Label = "max-mem=16"
	return []model.Summary{base, second}
}

func TestNewReporter(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &TableReporter{}, NewReporter("table", &buf))
	assert.IsType(t, &TableReporter{}, NewReporter("", &buf))
	assert.IsType(t, &JSONReporter{}, NewReporter("json", &buf))
	assert.IsType(t, &MarkdownReporter{}, NewReporter("markdown", &buf))
	assert.IsType(t, &CSVReporter{}, NewReporter("csv", &buf))
}

func TestTableReporter_Single(t *testing.T) {
	var buf bytes.Buffer
	entries := sampleEntries()[:1]
	err := NewReporter("table", &buf).Report(context.Background(), entries, Meta{Mode: "first-fit-random", NodeSource: "aws"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "capsim simulation")
	assert.Contains(t, out, "4 CPU / 16 GiB (aws)")
	assert.Contains(t, out, "10000 (300 active)")
	assert.Contains(t, out, "42.50")
	assert.Contains(t, out, "Monthly cost")
	assert.Contains(t, out, "Balance score")
	assert.Contains(t, out, "memory overflow in 12.0% of trials")
}

func TestTableReporter_Sweep(t *testing.T) {
	var buf bytes.Buffer
	err := NewReporter("table", &buf).Report(context.Background(), sampleEntries(), Meta{Mode: "best-fit", Parameter: "max-mem"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "sweep over max-mem")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "#2")
	assert.Contains(t, out, "Best: max-mem=16")
}

func TestTableReporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := NewReporter("table", &buf).Report(context.Background(), nil, Meta{Parameter: "max-cpu"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results available.")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	meta := Meta{Mode: "partition", NodeSource: "config", Parameter: "max-mem"}
	require.NoError(t, NewReporter("json", &buf).Report(context.Background(), sampleEntries(), meta))

	var out struct {
		Meta    Meta             `json:"meta"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "partition", out.Meta.Mode)
	require.Len(t, out.Results, 2)
	first := out.Results[0]
	assert.Equal(t, "max-mem=16", first["label"])
	assert.Equal(t, 42.5, first["mean_node_count"])
	assert.Contains(t, first, "breakdowns")
	assert.Contains(t, first, "fragmentation")
}

func TestJSONReporter_EmptyResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter("json", &buf).Report(context.Background(), nil, Meta{}))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestMarkdownReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter("markdown", &buf).Report(context.Background(), sampleEntries(),
		Meta{Mode: "first-fit-random", Parameter: "max-mem", Calibration: "prometheus"}))

	out := buf.String()
	assert.Contains(t, out, "## capsim: Sweep over `max-mem`")
	assert.Contains(t, out, "**Calibrated from:** prometheus")
	assert.Contains(t, out, "| 1 | max-mem=16 | 4 CPU / 16 GiB | 100 |")
	assert.Contains(t, out, "- memory overflow in 12.0% of trials")
}

func TestCSVReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReporter("csv", &buf).Report(context.Background(), sampleEntries(), Meta{Mode: "best-fit"}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "max-mem=16", rows[1][1])
	assert.Equal(t, "best-fit", rows[1][2])
	assert.Equal(t, "42.5", rows[1][10])
	assert.Equal(t, "32", rows[2][4])
}
