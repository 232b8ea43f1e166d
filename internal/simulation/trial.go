package simulation

import (
	"context"
	"math/rand/v2"

	"github.com/guimove/capsim/internal/model"
)

// TrialRunner packs a shuffled population into an elastically grown pool.
type TrialRunner struct {
	Spec   model.NodeSpec
	Placer Placer
}

// NewTrialRunner creates a first-fit-random trial runner.
func NewTrialRunner(spec model.NodeSpec) *TrialRunner {
	return &TrialRunner{Spec: spec, Placer: FirstFitRandom{}}
}

// NewBestFitRunner creates a trial runner that packs each workload onto the
// tightest fitting node.
func NewBestFitRunner(spec model.NodeSpec) *TrialRunner {
	return &TrialRunner{Spec: spec, Placer: BestFit{}}
}

// Name returns the trial mode name.
func (r *TrialRunner) Name() string { return r.Placer.Name() }

// Run places every workload exactly once. When no existing node admits a
// workload a new node is appended and the workload goes there; if even the
// fresh node refuses it, the trial fails with an UnplaceableError.
func (r *TrialRunner) Run(
	ctx context.Context,
	workloads []model.Workload,
	rng *rand.Rand,
	keep bool,
) (model.TrialOutcome, error) {
	order := shuffled(workloads, rng)

	pool := model.NewNodePool(r.Spec)
	if len(order) > 0 {
		pool.Grow()
	}

	for i := range order {
		if i%placementsPerCtxCheck == 0 && ctx.Err() != nil {
			return model.TrialOutcome{}, ctx.Err()
		}

		w := order[i]
		if r.Placer.Place(w, pool, rng) {
			continue
		}
		if !pool.Grow().TryAdmit(w) {
			return model.TrialOutcome{}, &model.UnplaceableError{Workload: w, Spec: r.Spec}
		}
	}

	return outcome(pool, keep), nil
}
