package simulation

import (
	"fmt"
	"math"
	"sort"

	"github.com/guimove/capsim/internal/model"
)

// Warning thresholds.
const (
	RiskyOverflowProbability  = 0.05
	LowUtilThreshold          = 0.30
	HighPackingRatePerCore    = 50.0
	underutilizedWarnFraction = LowUtilThreshold
)

// ScoringWeights balances the components of a sweep score. They need not
// sum to one.
type ScoringWeights struct {
	Cost    float64 `mapstructure:"cost" json:"cost"`
	Density float64 `mapstructure:"density" json:"density"`
	Risk    float64 `mapstructure:"risk" json:"risk"`
}

// DefaultScoringWeights favours overflow safety, then cost.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Cost: 0.35, Density: 0.15, Risk: 0.50}
}

// Scorer ranks the summaries of a parameter sweep.
type Scorer struct {
	Weights ScoringWeights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights ScoringWeights) *Scorer {
	return &Scorer{Weights: weights}
}

// Rank scores every summary, attaches warnings and returns them sorted by
// score, best first. The input slice is not reordered.
func (s *Scorer) Rank(summaries []model.Summary) []model.Summary {
	if len(summaries) == 0 {
		return nil
	}

	ranked := make([]model.Summary, len(summaries))
	copy(ranked, summaries)

	priced := true
	for _, r := range ranked {
		if r.MonthlyCost <= 0 {
			priced = false
			break
		}
	}

	costs := make([]float64, len(ranked))
	minCost, maxCost := math.MaxFloat64, 0.0
	maxRate := 0.0
	for i, r := range ranked {
		costs[i] = provisionedCost(r, priced)
		minCost = math.Min(minCost, costs[i])
		maxCost = math.Max(maxCost, costs[i])
		maxRate = math.Max(maxRate, r.PackingRate)
	}

	for i := range ranked {
		r := &ranked[i]

		costScore := 100.0
		if span := maxCost - minCost; span > 0 {
			costScore = (1.0 - (costs[i]-minCost)/span) * 100
		}
		densityScore := 0.0
		if maxRate > 0 {
			densityScore = r.PackingRate / maxRate * 100
		}
		riskScore := (1.0 - math.Max(r.ProbMemOverflow, r.ProbCPUOverflow)) * 100

		r.Score = s.Weights.Cost*costScore + s.Weights.Density*densityScore + s.Weights.Risk*riskScore
		r.Warnings = Warnings(*r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// provisionedCost is the monthly cost when every entry is priced, and the
// provisioned core count otherwise.
func provisionedCost(s model.Summary, priced bool) float64 {
	if priced {
		return s.MonthlyCost
	}
	return s.MeanNodeCount * s.MaxCPU
}

// Warnings lists the operational concerns raised by one summary.
func Warnings(s model.Summary) []string {
	var warnings []string

	if s.Partial {
		warnings = append(warnings,
			fmt.Sprintf("only %d of %d trials completed before the deadline", s.CompletedTrials, s.RequestedTrials))
	}
	if s.ProbMemOverflow > RiskyOverflowProbability {
		warnings = append(warnings,
			fmt.Sprintf("%.0f%% of trials had a node over memory capacity", s.ProbMemOverflow*100))
	}
	if s.ProbCPUOverflow > RiskyOverflowProbability {
		warnings = append(warnings,
			fmt.Sprintf("%.0f%% of trials had a node over CPU capacity", s.ProbCPUOverflow*100))
	}
	if s.PackingRate > HighPackingRatePerCore {
		warnings = append(warnings,
			fmt.Sprintf("%.1f workloads per core leaves little headroom for bursts", s.PackingRate))
	}
	if s.Fragmentation != nil && s.Fragmentation.UnderutilizedNodeFraction > underutilizedWarnFraction {
		warnings = append(warnings,
			fmt.Sprintf("%.0f%% of nodes are underutilized (<%d%% on one dimension)",
				s.Fragmentation.UnderutilizedNodeFraction*100, int(underThreshold*100)))
	}

	return warnings
}
