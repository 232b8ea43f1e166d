package orchestrator

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guimove/capsim/internal/catalog"
	"github.com/guimove/capsim/internal/config"
	"github.com/guimove/capsim/internal/metrics"
	"github.com/guimove/capsim/internal/model"
	"github.com/guimove/capsim/internal/report"
	"github.com/guimove/capsim/internal/simulation"
)

// CapacitySource resolves a named node shape, such as an EC2 instance type
// or a live Kubernetes node.
type CapacitySource interface {
	NodeCapacity(ctx context.Context, name string) (model.NodeCapacity, error)
}

// Orchestrator coordinates the end-to-end simulation pipeline.
type Orchestrator struct {
	Config config.Config
	Writer io.Writer
	Logger zerolog.Logger

	// Optional: resolve the node shape from CapacityName.
	Capacity     CapacitySource
	CapacityName string

	// Optional: derive population parameters from observed workloads.
	Calibration metrics.Source
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCapacitySource resolves the node shape named name through src.
func WithCapacitySource(src CapacitySource, name string) Option {
	return func(o *Orchestrator) {
		o.Capacity = src
		o.CapacityName = name
	}
}

// WithCalibration calibrates the population through src before simulating.
func WithCalibration(src metrics.Source) Option {
	return func(o *Orchestrator) { o.Calibration = src }
}

// WithWriter sets the report destination.
func WithWriter(w io.Writer) Option {
	return func(o *Orchestrator) { o.Writer = w }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.Logger = l }
}

// New creates an orchestrator over cfg.
func New(cfg config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Config: cfg,
		Writer: os.Stdout,
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run resolves inputs, simulates one configuration and reports it.
func (o *Orchestrator) Run(ctx context.Context) (model.Summary, error) {
	cfg, meta, err := o.resolve(ctx)
	if err != nil {
		return model.Summary{}, err
	}

	m := simulation.NewMetrics()
	summary, err := o.simulate(ctx, cfg, m)
	if err != nil {
		return model.Summary{}, err
	}

	if err := o.report(ctx, cfg, []model.Summary{summary}, meta); err != nil {
		return model.Summary{}, err
	}
	if err := writeMetrics(cfg, m); err != nil {
		return model.Summary{}, err
	}
	return summary, nil
}

// Sweep simulates one configuration per value of param and reports them
// ranked by the configured scoring weights.
func (o *Orchestrator) Sweep(ctx context.Context, param string, values []float64) ([]model.Summary, error) {
	set, ok := sweepParams[param]
	if !ok {
		return nil, model.Invalidf("unknown sweep parameter %q (valid: %s)", param, strings.Join(SweepParams(), ", "))
	}
	if len(values) == 0 {
		return nil, model.Invalidf("sweep over %s needs at least one value", param)
	}

	base, meta, err := o.resolve(ctx)
	if err != nil {
		return nil, err
	}
	meta.Parameter = param

	m := simulation.NewMetrics()
	summaries := make([]model.Summary, 0, len(values))
	for _, v := range values {
		cfg := base
		if err := set(&cfg, v); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", param, v, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", param, v, err)
		}

		s, err := o.simulate(ctx, cfg, m)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", param, v, err)
		}
		s.Label = param + "=" + strconv.FormatFloat(v, 'g', -1, 64)
		summaries = append(summaries, s)
	}

	ranked := simulation.NewScorer(base.Scoring.Weights).Rank(summaries)

	if err := o.report(ctx, base, ranked, meta); err != nil {
		return nil, err
	}
	if err := writeMetrics(base, m); err != nil {
		return nil, err
	}
	return ranked, nil
}

// resolve applies the node capacity and calibration to a copy of the config.
func (o *Orchestrator) resolve(ctx context.Context) (config.Config, report.Meta, error) {
	cfg := o.Config
	meta := report.Meta{
		Mode:        cfg.Simulation.Mode,
		NodeSource:  "config",
		GeneratedAt: time.Now().UTC(),
	}

	if o.Capacity != nil {
		nc, err := o.Capacity.NodeCapacity(ctx, o.CapacityName)
		if err != nil {
			return cfg, meta, fmt.Errorf("resolving node capacity for %s: %w", o.CapacityName, err)
		}
		cfg.ApplyCapacity(nc)
		meta.NodeSource = nc.Source + ":" + nc.Name
		o.Logger.Info().Str("node", nc.Name).Float64("cpu", nc.CPU).Float64("mem_gib", nc.Mem).
			Float64("price_per_hour", cfg.Node.PricePerHour).Msg("resolved node capacity")
	}

	if o.Calibration != nil {
		cal, err := o.Calibration.Calibrate(ctx, metrics.OptionsFromConfig(&cfg))
		if err != nil {
			return cfg, meta, fmt.Errorf("calibrating population: %w", err)
		}
		cal.Apply(&cfg)
		meta.Calibration = cal.Backend
		o.Logger.Info().Str("backend", cal.Backend).Int("total", cal.TotalCount).
			Float64("active_fraction", cal.ActiveFraction).Msg("calibrated population")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, meta, err
	}
	return cfg, meta, nil
}

// simulate builds the catalog and runs one batch in the configured mode.
func (o *Orchestrator) simulate(ctx context.Context, cfg config.Config, m *simulation.Metrics) (model.Summary, error) {
	pop := cfg.PopulationStats()
	workloads, err := catalog.Build(pop, cfg.Profiles.Idle, cfg.Profiles.Active)
	if err != nil {
		return model.Summary{}, fmt.Errorf("building workload catalog: %w", err)
	}
	active, _, err := catalog.Split(pop)
	if err != nil {
		return model.Summary{}, err
	}

	runner, err := newRunner(cfg)
	if err != nil {
		return model.Summary{}, err
	}

	opts := []simulation.Option{
		simulation.WithParallelism(cfg.Simulation.Parallelism),
		simulation.WithBreakdown(cfg.Simulation.Breakdown),
		simulation.WithMetrics(m),
		simulation.WithLogger(o.Logger),
	}
	if cfg.Simulation.Seed != 0 {
		opts = append(opts, simulation.WithSeed(cfg.Simulation.Seed))
	}
	engine := simulation.NewEngine(runner, opts...)

	runCtx := ctx
	if cfg.Simulation.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Simulation.Timeout)
		defer cancel()
	}

	agg, err := engine.Run(runCtx, workloads, cfg.Simulation.Trials)
	if err != nil {
		return model.Summary{}, fmt.Errorf("running simulation: %w", err)
	}

	s := simulation.Summarize(agg, pop.TotalCount, cfg.Node.MaxCPU)
	s.ActiveCount = active
	s.MaxMem = cfg.Node.MaxMem
	if cfg.Node.PricePerHour > 0 {
		s.PricePerHour = cfg.Node.PricePerHour
		s.MonthlyCost = cfg.Node.PricePerHour * model.HoursPerMonth * agg.MeanNodeCount
	}
	if nodes := lastBreakdown(agg.Breakdowns); nodes != nil {
		frag := simulation.AnalyzeFragmentation(nodes)
		s.Fragmentation = &frag
	}
	s.Label = label(cfg)
	s.Warnings = simulation.Warnings(s)

	o.Logger.Info().Str("mode", runner.Name()).Int("trials", agg.CompletedTrials).
		Float64("mean_nodes", agg.MeanNodeCount).Float64("packing_rate", s.PackingRate).
		Dur("duration", agg.Duration).Msg("simulation finished")
	return s, nil
}

func newRunner(cfg config.Config) (simulation.Runner, error) {
	spec := cfg.NodeSpec()
	switch cfg.Simulation.Mode {
	case simulation.ModePartition:
		r, err := simulation.NewPartitionRunner(spec, cfg.Simulation.PartitionNodes)
		if err != nil {
			return nil, err
		}
		return r, nil
	case simulation.ModeBestFit:
		return simulation.NewBestFitRunner(spec), nil
	default:
		return simulation.NewTrialRunner(spec), nil
	}
}

// lastBreakdown returns the kept breakdown of the highest trial index.
func lastBreakdown(b map[int][]model.NodeBreakdown) []model.NodeBreakdown {
	last := -1
	for idx := range b {
		if idx > last {
			last = idx
		}
	}
	if last < 0 {
		return nil
	}
	return b[last]
}

func (o *Orchestrator) report(ctx context.Context, cfg config.Config, results []model.Summary, meta report.Meta) error {
	reporter := report.NewReporter(cfg.Output.Format, o.Writer)
	if err := reporter.Report(ctx, results, meta); err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	return nil
}

func writeMetrics(cfg config.Config, m *simulation.Metrics) error {
	if cfg.Output.MetricsFile == "" {
		return nil
	}
	if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

func label(cfg config.Config) string {
	return fmt.Sprintf("%g CPU / %g GiB", cfg.Node.MaxCPU, cfg.Node.MaxMem)
}

// sweepParams maps a sweep parameter to the config field it sets.
var sweepParams = map[string]func(*config.Config, float64) error{
	"max-cpu":         func(c *config.Config, v float64) error { c.Node.MaxCPU = v; return nil },
	"max-mem":         func(c *config.Config, v float64) error { c.Node.MaxMem = v; return nil },
	"total-count":     func(c *config.Config, v float64) error { return setCount(&c.Population.TotalCount, v) },
	"active-fraction": func(c *config.Config, v float64) error { c.Population.ActiveFraction = v; return nil },
	"active-hours":    func(c *config.Config, v float64) error { c.Population.ActiveHoursPerDay = v; return nil },
	"partition-nodes": func(c *config.Config, v float64) error { return setCount(&c.Simulation.PartitionNodes, v) },
}

// setCount stores v in dst, refusing values with a fractional part.
func setCount(dst *int, v float64) error {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return model.Invalidf("%g is not a whole number", v)
	}
	*dst = int(v)
	return nil
}

// SweepParams lists the parameters Sweep accepts.
func SweepParams() []string {
	names := make([]string, 0, len(sweepParams))
	for n := range sweepParams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
