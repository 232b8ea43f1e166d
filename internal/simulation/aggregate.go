package simulation

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/guimove/capsim/internal/model"
)

// confidenceLevel is the two-sided coverage of the reported intervals.
const confidenceLevel = 0.95

// Aggregate reduces trial outcomes, in the order given, into means and
// confidence intervals. An empty slice yields the zero result.
func Aggregate(outcomes []model.TrialOutcome) model.AggregateResult {
	var agg model.AggregateResult
	n := len(outcomes)
	if n == 0 {
		return agg
	}

	nodes := make([]float64, n)
	memFrac := make([]float64, n)
	cpuFrac := make([]float64, n)

	var memNodes, cpuNodes, memTrials, cpuTrials int
	agg.MinNodeCount = outcomes[0].NodeCount
	agg.MaxNodeCount = outcomes[0].NodeCount

	for i, o := range outcomes {
		nodes[i] = float64(o.NodeCount)
		memFrac[i] = o.MemOverflowFraction()
		cpuFrac[i] = o.CPUOverflowFraction()

		memNodes += o.OverflowMemCount
		cpuNodes += o.OverflowCPUCount
		if o.OverflowMemCount > 0 {
			memTrials++
		}
		if o.OverflowCPUCount > 0 {
			cpuTrials++
		}
		if o.NodeCount < agg.MinNodeCount {
			agg.MinNodeCount = o.NodeCount
		}
		if o.NodeCount > agg.MaxNodeCount {
			agg.MaxNodeCount = o.NodeCount
		}
	}

	nf := float64(n)
	agg.MeanNodeCount, agg.StdDevNodeCount, agg.NodeCountCI = meanCI(nodes)
	agg.MeanMemOverflow, _, agg.MemOverflowCI = meanCI(memFrac)
	agg.MeanCPUOverflow, _, agg.CPUOverflowCI = meanCI(cpuFrac)
	agg.MeanOverflowMemNodes = float64(memNodes) / nf
	agg.MeanOverflowCPUNodes = float64(cpuNodes) / nf
	agg.ProbMemOverflow = float64(memTrials) / nf
	agg.ProbCPUOverflow = float64(cpuTrials) / nf
	agg.CompletedTrials = n

	return agg
}

// meanCI returns the sample mean, sample standard deviation and a Student-t
// confidence interval for the mean. With fewer than two samples the spread
// is zero and the interval collapses onto the mean.
func meanCI(x []float64) (mean, std float64, ci model.Interval) {
	if len(x) < 2 {
		mean = stat.Mean(x, nil)
		return mean, 0, model.Interval{Low: mean, High: mean}
	}

	mean, std = stat.MeanStdDev(x, nil)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(x) - 1)}
	half := t.Quantile(1-(1-confidenceLevel)/2) * std / math.Sqrt(float64(len(x)))
	return mean, std, model.Interval{Low: mean - half, High: mean + half}
}

// Summarize maps an aggregate onto the reported metric set. The packing rate
// is workloads per node per CPU core and is zero when no nodes were used.
func Summarize(agg model.AggregateResult, totalCount int, maxCPU float64) model.Summary {
	s := model.Summary{
		AggregateResult: agg,
		TotalCount:      totalCount,
		MaxCPU:          maxCPU,
	}
	if agg.MeanNodeCount > 0 && maxCPU > 0 {
		s.PackingRate = float64(totalCount) / agg.MeanNodeCount / maxCPU
	}
	return s
}
