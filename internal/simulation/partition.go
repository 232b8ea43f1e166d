package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/guimove/capsim/internal/model"
)

// PartitionRunner reproduces the fixed-pool model: the shuffled population
// is cut into Nodes consecutive slices and each slice lands on one node
// regardless of requests. Only usage overflow is measured.
type PartitionRunner struct {
	Spec  model.NodeSpec
	Nodes int
}

// NewPartitionRunner creates a fixed-partition trial runner.
func NewPartitionRunner(spec model.NodeSpec, nodes int) (*PartitionRunner, error) {
	if nodes <= 0 {
		return nil, model.Invalidf("partition_nodes must be positive, got %d", nodes)
	}
	return &PartitionRunner{Spec: spec, Nodes: nodes}, nil
}

// Name returns the trial mode name.
func (r *PartitionRunner) Name() string { return ModePartition }

// Run fills every node with len(workloads)/Nodes workloads; the first
// len(workloads)%Nodes nodes take one more so nothing is dropped.
func (r *PartitionRunner) Run(
	ctx context.Context,
	workloads []model.Workload,
	rng *rand.Rand,
	keep bool,
) (model.TrialOutcome, error) {
	if r.Nodes <= 0 {
		return model.TrialOutcome{}, fmt.Errorf("partition runner: %w", model.Invalidf("no nodes"))
	}
	order := shuffled(workloads, rng)

	pool := model.NewNodePool(r.Spec)
	base, extra := len(order)/r.Nodes, len(order)%r.Nodes

	next := 0
	for i := 0; i < r.Nodes; i++ {
		if ctx.Err() != nil {
			return model.TrialOutcome{}, ctx.Err()
		}
		size := base
		if i < extra {
			size++
		}
		node := pool.Grow()
		for _, w := range order[next : next+size] {
			node.Place(w)
		}
		next += size
	}

	return outcome(pool, keep), nil
}
