package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/guimove/capsim/internal/model"
)

// JSONReporter outputs summaries as JSON, node breakdowns included.
type JSONReporter struct {
	w io.Writer
}

type jsonOutput struct {
	Meta    Meta    `json:"meta"`
	Results []model.Summary `json:"results"`
}

func (r *JSONReporter) Report(ctx context.Context, entries []model.Summary, meta Meta) error {
	if entries == nil {
		entries = []model.Summary{}
	}
	output := jsonOutput{
		Meta:    meta,
		Results: entries,
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
