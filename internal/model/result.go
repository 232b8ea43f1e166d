package model

import "time"

// TrialOutcome captures one complete packing pass.
type TrialOutcome struct {
	NodeCount        int `json:"node_count"`
	OverflowMemCount int `json:"overflow_mem_count"`
	OverflowCPUCount int `json:"overflow_cpu_count"`

	// Per-node detail, only populated when the breakdown is requested.
	Nodes []NodeBreakdown `json:"nodes,omitempty"`
}

// MemOverflowFraction returns the share of nodes over memory capacity.
func (o TrialOutcome) MemOverflowFraction() float64 {
	if o.NodeCount == 0 {
		return 0
	}
	return float64(o.OverflowMemCount) / float64(o.NodeCount)
}

// CPUOverflowFraction returns the share of nodes over CPU capacity.
func (o TrialOutcome) CPUOverflowFraction() float64 {
	if o.NodeCount == 0 {
		return 0
	}
	return float64(o.OverflowCPUCount) / float64(o.NodeCount)
}

// Interval is a two-sided confidence interval around a mean.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// AggregateResult is the reduction of a batch of trials.
type AggregateResult struct {
	MeanNodeCount        float64 `json:"mean_node_count"`
	MeanMemOverflow      float64 `json:"mean_mem_overflow_fraction"`
	MeanCPUOverflow      float64 `json:"mean_cpu_overflow_fraction"`
	MeanOverflowMemNodes float64 `json:"mean_overflow_mem_nodes"`
	MeanOverflowCPUNodes float64 `json:"mean_overflow_cpu_nodes"`

	// Share of trials with at least one node over capacity.
	ProbMemOverflow float64 `json:"prob_mem_overflow"`
	ProbCPUOverflow float64 `json:"prob_cpu_overflow"`

	StdDevNodeCount float64  `json:"stddev_node_count"`
	NodeCountCI     Interval `json:"node_count_ci95"`
	MemOverflowCI   Interval `json:"mem_overflow_ci95"`
	CPUOverflowCI   Interval `json:"cpu_overflow_ci95"`
	MinNodeCount    int      `json:"min_node_count"`
	MaxNodeCount    int      `json:"max_node_count"`

	RequestedTrials int    `json:"requested_trials"`
	CompletedTrials int    `json:"completed_trials"`
	Partial         bool   `json:"partial"`
	Seed            uint64 `json:"seed"`

	// Breakdowns holds one entry per kept trial, keyed by trial index.
	Breakdowns map[int][]NodeBreakdown `json:"breakdowns,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Summary is the reported metric set for one configuration.
type Summary struct {
	AggregateResult

	// Label names the configuration, e.g. the swept value.
	Label string `json:"label,omitempty"`

	TotalCount  int     `json:"total_count"`
	ActiveCount int     `json:"active_count"`
	MaxCPU      float64 `json:"max_cpu"`
	MaxMem      float64 `json:"max_mem"`
	PackingRate float64 `json:"packing_rate"`

	// Cost of the mean node count, zero when no price is known.
	PricePerHour float64 `json:"price_per_hour,omitempty"`
	MonthlyCost  float64 `json:"monthly_cost,omitempty"`

	// Fragmentation of the last kept breakdown, if any.
	Fragmentation *FragmentationReport `json:"fragmentation,omitempty"`

	// Set when the summary is ranked against others in a sweep.
	Score float64 `json:"score,omitempty"`
	Rank  int     `json:"rank,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// FragmentationReport describes how well requests are balanced across the
// nodes of one trial.
type FragmentationReport struct {
	// Capacity left unusable because the other dimension is nearly full.
	StrandedCPU float64 `json:"stranded_cpu"`
	StrandedMem float64 `json:"stranded_mem"`

	UnderutilizedNodeFraction float64 `json:"underutilized_node_fraction"`
	// 1 means CPU and memory requests are equally committed on every node.
	ResourceBalanceScore float64 `json:"resource_balance_score"`
}

// HoursPerMonth is the standard number of hours used for monthly cost estimates.
const HoursPerMonth = 730.0
