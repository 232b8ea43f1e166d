package simulation

import (
	"math"

	"github.com/guimove/capsim/internal/model"
)

// Commitment thresholds for fragmentation analysis.
const (
	fullThreshold  = 0.85
	underThreshold = 0.50
)

// AnalyzeFragmentation computes request-side fragmentation for one trial's
// node breakdown.
func AnalyzeFragmentation(nodes []model.NodeBreakdown) model.FragmentationReport {
	if len(nodes) == 0 {
		return model.FragmentationReport{ResourceBalanceScore: 1.0}
	}

	var report model.FragmentationReport
	var underutilized, counted int

	for i := range nodes {
		n := &nodes[i]
		if n.CPUCeiling <= 0 || n.MemoryCeiling <= 0 {
			continue
		}
		counted++

		cpuUtil := n.Requested.CPU / n.CPUCeiling
		memUtil := n.Requested.Mem / n.MemoryCeiling

		// One dimension nearly full, the other mostly free.
		if cpuUtil > fullThreshold && memUtil < underThreshold {
			report.StrandedMem += n.MemoryCeiling - n.Requested.Mem
		}
		if memUtil > fullThreshold && cpuUtil < underThreshold {
			report.StrandedCPU += n.CPUCeiling - n.Requested.CPU
		}

		if cpuUtil < underThreshold || memUtil < underThreshold {
			underutilized++
		}

		report.ResourceBalanceScore += 1.0 - math.Abs(cpuUtil-memUtil)
	}

	if counted == 0 {
		report.ResourceBalanceScore = 1.0
		return report
	}
	c := float64(counted)
	report.UnderutilizedNodeFraction = float64(underutilized) / c
	report.ResourceBalanceScore /= c
	return report
}
