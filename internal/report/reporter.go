package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/guimove/capsim/internal/model"
)

// Reporter formats and writes simulation summaries to an output destination.
type Reporter interface {
	Report(ctx context.Context, results []model.Summary, meta Meta) error
}

// Meta contains contextual metadata for the report.
type Meta struct {
	Mode        string    `json:"mode"`
	NodeSource  string    `json:"node_source"`           // "config", "aws", "kubernetes"
	Calibration string    `json:"calibration,omitempty"` // backend the population came from
	Parameter   string    `json:"parameter,omitempty"`   // sweep parameter, empty for a single run
	GeneratedAt time.Time `json:"generated_at"`
}

// NewReporter creates a reporter for the given format writing to w.
func NewReporter(format string, w io.Writer) Reporter {
	switch format {
	case "json":
		return &JSONReporter{w: w}
	case "markdown":
		return &MarkdownReporter{w: w}
	case "csv":
		return &CSVReporter{w: w}
	default:
		return &TableReporter{w: w}
	}
}

func nodeShape(s model.Summary) string {
	return fmt.Sprintf("%g CPU / %g GiB", s.MaxCPU, s.MaxMem)
}

func trials(s model.Summary) string {
	if s.Partial {
		return fmt.Sprintf("%d/%d (partial)", s.CompletedTrials, s.RequestedTrials)
	}
	return fmt.Sprintf("%d", s.CompletedTrials)
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
