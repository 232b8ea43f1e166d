package simulation

import (
	"math"
	"math/rand/v2"

	"github.com/guimove/capsim/internal/model"
)

// BestFit places each workload on the node left most tightly packed by it.
// It ignores the generator, so trials differ only by arrival order.
type BestFit struct{}

// Name returns the strategy name.
func (BestFit) Name() string { return ModeBestFit }

// Place admits w on the tightest fitting node. Ties go to the lowest index.
func (BestFit) Place(w model.Workload, pool *model.NodePool, _ *rand.Rand) bool {
	bestIdx := -1
	bestScore := math.MaxFloat64

	for i := 0; i < pool.Len(); i++ {
		n := pool.At(i)
		if !n.Requested.Add(w.Request).FitsIn(n.Spec.Capacity()) {
			continue
		}
		score := compositeRemaining(n, w)
		if score < bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return false
	}
	return pool.At(bestIdx).TryAdmit(w)
}

// compositeRemaining measures the spare request capacity of n after placing
// w, as the Euclidean norm of the remaining CPU and memory fractions. Lower
// is tighter.
func compositeRemaining(n *model.Node, w model.Workload) float64 {
	capacity := n.Spec.Capacity()
	if capacity.CPU <= 0 || capacity.Mem <= 0 {
		return math.MaxFloat64
	}
	after := capacity.Sub(n.Requested.Add(w.Request))
	cpu := after.CPU / capacity.CPU
	mem := after.Mem / capacity.Mem
	return math.Sqrt(cpu*cpu + mem*mem)
}
