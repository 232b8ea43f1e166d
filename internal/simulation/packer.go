package simulation

import (
	"context"
	"math/rand/v2"

	"github.com/guimove/capsim/internal/model"
)

// Placer assigns a single workload to one of the nodes already in the pool.
type Placer interface {
	// Place returns false when no existing node admits w. It never grows
	// the pool.
	Place(w model.Workload, pool *model.NodePool, rng *rand.Rand) bool

	// Name returns the strategy name.
	Name() string
}

// Runner executes one complete trial over the whole population.
type Runner interface {
	// Run packs workloads into a fresh pool. keep asks for the per-node
	// breakdown to be attached to the outcome.
	Run(ctx context.Context, workloads []model.Workload, rng *rand.Rand, keep bool) (model.TrialOutcome, error)

	// Name returns the trial mode name.
	Name() string
}

// Trial modes.
const (
	ModeFirstFitRandom = "first-fit-random"
	ModePartition      = "partition"
	ModeBestFit        = "best-fit"
)

// placementsPerCtxCheck bounds how often a trial polls its context.
const placementsPerCtxCheck = 256

// shuffled returns a uniformly permuted copy of workloads.
func shuffled(workloads []model.Workload, rng *rand.Rand) []model.Workload {
	order := make([]model.Workload, len(workloads))
	copy(order, workloads)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// outcome classifies the final pool.
func outcome(pool *model.NodePool, keep bool) model.TrialOutcome {
	mem, cpu := pool.Overflows()
	out := model.TrialOutcome{
		NodeCount:        pool.Len(),
		OverflowMemCount: mem,
		OverflowCPUCount: cpu,
	}
	if keep {
		out.Nodes = pool.Breakdown()
	}
	return out
}
