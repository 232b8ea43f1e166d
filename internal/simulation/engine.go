package simulation

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guimove/capsim/internal/model"
)

// Breakdown policies control which trials keep their per-node detail.
const (
	BreakdownNone = "none"
	BreakdownLast = "last"
	BreakdownAll  = "all"
)

// Engine runs independent Monte Carlo trials and reduces them.
type Engine struct {
	Runner      Runner
	Parallelism int
	Seed        uint64
	Breakdown   string
	Metrics     *Metrics
	Logger      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed fixes the batch seed so runs are reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.Seed = seed }
}

// WithParallelism bounds the number of concurrent trials. Values below one
// are ignored.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.Parallelism = n
		}
	}
}

// WithBreakdown selects which trials keep their node breakdown.
func WithBreakdown(policy string) Option {
	return func(e *Engine) { e.Breakdown = policy }
}

// WithMetrics records trial metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.Metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

// NewEngine creates an engine seeded from the wall clock.
func NewEngine(runner Runner, opts ...Option) *Engine {
	e := &Engine{
		Runner:      runner,
		Parallelism: runtime.NumCPU(),
		Seed:        uint64(time.Now().UnixNano()),
		Breakdown:   BreakdownNone,
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes trials independent passes over the same population.
//
// Trial i draws from its own PCG stream (Seed, i), and outcomes are reduced
// in trial order, so a fixed seed gives the same result at any parallelism.
// The first trial failure cancels the batch and is returned. If ctx reaches
// its deadline after some trials finished, the finished ones are aggregated
// and the result is flagged Partial.
func (e *Engine) Run(ctx context.Context, workloads []model.Workload, trials int) (model.AggregateResult, error) {
	if trials <= 0 {
		return model.AggregateResult{}, model.Invalidf("trial count must be positive, got %d", trials)
	}
	if e.Runner == nil {
		return model.AggregateResult{}, model.Invalidf("no trial runner configured")
	}

	start := time.Now()
	log := e.Logger.With().Str("mode", e.Runner.Name()).Uint64("seed", e.Seed).Logger()
	log.Debug().Int("trials", trials).Int("workloads", len(workloads)).
		Int("parallelism", e.Parallelism).Msg("starting batch")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]model.TrialOutcome, trials)
	done := make([]bool, trials)
	errs := make([]error, trials)

	parallelism := e.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

launch:
	for i := 0; i < trials; i++ {
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
			break launch
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			trialStart := time.Now()
			out, err := e.Runner.Run(runCtx, workloads, e.trialRand(idx), e.keep(idx, trials))
			if err != nil {
				errs[idx] = err
				if !isContextErr(err) {
					e.Metrics.observeFailure()
					cancel()
				}
				return
			}
			outcomes[idx] = out
			done[idx] = true
			e.Metrics.observeTrial(out, time.Since(trialStart))
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil && !isContextErr(err) {
			log.Debug().Err(err).Int("trial", i).Msg("trial failed, aborting batch")
			return model.AggregateResult{}, err
		}
	}

	completed := make([]model.TrialOutcome, 0, trials)
	var breakdowns map[int][]model.NodeBreakdown
	for i := range outcomes {
		if !done[i] {
			continue
		}
		completed = append(completed, outcomes[i])
		if outcomes[i].Nodes != nil {
			if breakdowns == nil {
				breakdowns = make(map[int][]model.NodeBreakdown)
			}
			breakdowns[i] = outcomes[i].Nodes
		}
	}

	// A deadline that fires after the last trial finished does not make the
	// batch partial.
	partial := len(completed) < trials
	if partial {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		if !errors.Is(err, context.DeadlineExceeded) || len(completed) == 0 {
			return model.AggregateResult{}, err
		}
		log.Warn().Int("completed", len(completed)).Int("requested", trials).
			Msg("deadline reached, reporting partial batch")
	}
	e.Metrics.setPartial(partial)

	agg := Aggregate(completed)
	agg.RequestedTrials = trials
	agg.Partial = partial
	agg.Seed = e.Seed
	agg.Breakdowns = breakdowns
	agg.Duration = time.Since(start)

	log.Debug().Dur("duration", agg.Duration).Float64("mean_nodes", agg.MeanNodeCount).Msg("batch finished")
	return agg, nil
}

// trialRand returns the generator for trial idx.
func (e *Engine) trialRand(idx int) *rand.Rand {
	return rand.New(rand.NewPCG(e.Seed, uint64(idx)))
}

func (e *Engine) keep(idx, trials int) bool {
	switch e.Breakdown {
	case BreakdownAll:
		return true
	case BreakdownLast:
		return idx == trials-1
	default:
		return false
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
