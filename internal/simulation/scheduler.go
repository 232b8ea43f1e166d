package simulation

import (
	"math/rand/v2"

	"github.com/guimove/capsim/internal/model"
)

// FirstFitRandom probes the pool round-robin from a uniformly random start
// index and takes the first node whose spare request capacity admits the
// workload. The random start is what makes trials differ from each other.
type FirstFitRandom struct{}

// Name returns the strategy name.
func (FirstFitRandom) Name() string { return ModeFirstFitRandom }

// Place tries every existing node once.
func (FirstFitRandom) Place(w model.Workload, pool *model.NodePool, rng *rand.Rand) bool {
	n := pool.Len()
	if n == 0 {
		return false
	}
	start := rng.IntN(n)
	for i := 0; i < n; i++ {
		if pool.At((start + i) % n).TryAdmit(w) {
			return true
		}
	}
	return false
}
