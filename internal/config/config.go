package config

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/guimove/capsim/internal/catalog"
	"github.com/guimove/capsim/internal/model"
	"github.com/guimove/capsim/internal/simulation"
)

// Config is the top-level configuration for capsim.
type Config struct {
	Population  PopulationConfig  `mapstructure:"population"`
	Profiles    ProfilesConfig    `mapstructure:"profiles"`
	Node        NodeConfig        `mapstructure:"node"`
	Simulation  SimulationConfig  `mapstructure:"simulation"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Prometheus  PrometheusConfig  `mapstructure:"prometheus"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Kubernetes  KubernetesConfig  `mapstructure:"kubernetes"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Output      OutputConfig      `mapstructure:"output"`
	Log         LogConfig         `mapstructure:"log"`
}

type PopulationConfig struct {
	TotalCount        int     `mapstructure:"total_count"`
	ActiveFraction    float64 `mapstructure:"active_fraction"`
	ActiveHoursPerDay float64 `mapstructure:"active_hours_per_day"`
	WorkdayHours      float64 `mapstructure:"workday_hours"`
}

type ProfilesConfig struct {
	Idle   model.ClassProfile `mapstructure:"idle"`
	Active model.ClassProfile `mapstructure:"active"`
}

type NodeConfig struct {
	MaxCPU           float64 `mapstructure:"max_cpu"`
	MaxMem           float64 `mapstructure:"max_mem"`
	SystemCPURequest float64 `mapstructure:"system_cpu_request"`
	SystemMemRequest float64 `mapstructure:"system_mem_request"`
	SystemCPUUsage   float64 `mapstructure:"system_cpu_usage"`
	SystemMemUsage   float64 `mapstructure:"system_mem_usage"`

	// Resolve capacity from an EC2 instance type or a live node instead.
	InstanceType string `mapstructure:"instance_type"`
	KubeNode     string `mapstructure:"kube_node"`

	// Hourly price of one node; filled from AWS when known.
	PricePerHour float64 `mapstructure:"price_per_hour"`
}

type SimulationConfig struct {
	Trials         int           `mapstructure:"trials"`
	Seed           uint64        `mapstructure:"seed"` // 0 = wall clock
	Parallelism    int           `mapstructure:"parallelism"`
	Mode           string        `mapstructure:"mode"`
	PartitionNodes int           `mapstructure:"partition_nodes"`
	Breakdown      string        `mapstructure:"breakdown"`
	Timeout        time.Duration `mapstructure:"timeout"` // 0 = none
}

type ScoringConfig struct {
	Weights simulation.ScoringWeights `mapstructure:"weights"`
}

type PrometheusConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CalibrationConfig struct {
	Window             time.Duration `mapstructure:"window"`
	Step               time.Duration `mapstructure:"step"`
	Percentile         float64       `mapstructure:"percentile"`
	ActiveCPUThreshold float64       `mapstructure:"active_cpu_threshold"` // cores
	ExcludeNamespaces  []string      `mapstructure:"exclude_namespaces"`
	File               string        `mapstructure:"file"` // static calibration JSON
}

type KubernetesConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Kubeconfig         string   `mapstructure:"kubeconfig"`
	Context            string   `mapstructure:"context"`
	Namespaces         []string `mapstructure:"namespaces"` // empty = all namespaces
	LabelSelector      string   `mapstructure:"label_selector"`
	DiscoveryNamespace string   `mapstructure:"discovery_namespace"`
}

type AWSConfig struct {
	Region   string        `mapstructure:"region"`
	CacheDir string        `mapstructure:"cache_dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// Price nodes at the lowest current spot price instead of on-demand.
	SpotPricing bool `mapstructure:"spot_pricing"`
}

type OutputConfig struct {
	Format      string `mapstructure:"format"`
	MetricsFile string `mapstructure:"metrics_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Population: PopulationConfig{
			TotalCount:        10000,
			ActiveFraction:    0.03,
			ActiveHoursPerDay: 8,
			WorkdayHours:      8,
		},
		Profiles: ProfilesConfig{
			Idle: model.ClassProfile{
				Executor: model.Footprint{CPURequest: 0.1, MemRequest: 0.25, CPUUsage: 0.01, MemUsage: 0.2},
			},
			Active: model.ClassProfile{
				Executor: model.Footprint{CPURequest: 0.5, MemRequest: 2, CPUUsage: 0.5, MemUsage: 2},
			},
		},
		Node: NodeConfig{
			MaxCPU: 4,
			MaxMem: 16,
		},
		Simulation: SimulationConfig{
			Trials:         100,
			Mode:           simulation.ModeFirstFitRandom,
			PartitionNodes: 330,
			Breakdown:      simulation.BreakdownNone,
		},
		Scoring: ScoringConfig{
			Weights: simulation.DefaultScoringWeights(),
		},
		Prometheus: PrometheusConfig{
			Timeout: 60 * time.Second,
		},
		Calibration: CalibrationConfig{
			Window:             7 * 24 * time.Hour,
			Step:               5 * time.Minute,
			Percentile:         0.95,
			ActiveCPUThreshold: 0.05,
			ExcludeNamespaces: []string{
				"kube-system",
				"kube-node-lease",
				"karpenter",
			},
		},
		AWS: AWSConfig{
			Region:   detectRegion(),
			CacheDir: defaultCacheDir(),
			CacheTTL: 24 * time.Hour,
		},
		Output: OutputConfig{
			Format: "table",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// PopulationStats returns the population statistics.
func (c *Config) PopulationStats() model.Population {
	return model.Population{
		TotalCount:        c.Population.TotalCount,
		ActiveFraction:    c.Population.ActiveFraction,
		ActiveHoursPerDay: c.Population.ActiveHoursPerDay,
		WorkdayHours:      c.Population.WorkdayHours,
	}
}

// NodeSpec returns the node shape every trial packs into.
func (c *Config) NodeSpec() model.NodeSpec {
	return model.NodeSpec{
		MaxCPU:        c.Node.MaxCPU,
		MaxMem:        c.Node.MaxMem,
		SystemRequest: model.Resources{CPU: c.Node.SystemCPURequest, Mem: c.Node.SystemMemRequest},
		SystemUsage:   model.Resources{CPU: c.Node.SystemCPUUsage, Mem: c.Node.SystemMemUsage},
	}
}

// ApplyCapacity overrides the node shape with a resolved capacity. A known
// price replaces the configured one; with spot pricing enabled the spot price
// is preferred when there is one.
func (c *Config) ApplyCapacity(nc model.NodeCapacity) {
	c.Node.MaxCPU = nc.CPU
	c.Node.MaxMem = nc.Mem
	c.Node.SystemCPURequest = nc.SystemRequest.CPU
	c.Node.SystemMemRequest = nc.SystemRequest.Mem

	price := nc.PricePerHour
	if c.AWS.SpotPricing && nc.SpotPricePerHour > 0 {
		price = nc.SpotPricePerHour
	}
	if price > 0 {
		c.Node.PricePerHour = price
	}
}

var (
	validModes = map[string]bool{
		simulation.ModeFirstFitRandom: true,
		simulation.ModePartition:      true,
		simulation.ModeBestFit:        true,
	}
	validBreakdowns = map[string]bool{
		simulation.BreakdownNone: true,
		simulation.BreakdownLast: true,
		simulation.BreakdownAll:  true,
	}
	validFormats    = map[string]bool{"table": true, "json": true, "markdown": true, "csv": true}
	validLogFormats = map[string]bool{"console": true, "json": true}
)

// Validate checks the config for consistency. Every error wraps
// model.ErrInvalidConfiguration. A zero parallelism is replaced by the CPU
// count.
func (c *Config) Validate() error {
	if err := catalog.Validate(c.PopulationStats()); err != nil {
		return err
	}
	if err := c.Profiles.Idle.Executor.Validate(); err != nil {
		return model.Invalidf("profiles.idle.executor: %v", err)
	}
	if err := c.Profiles.Idle.Manager.Validate(); err != nil {
		return model.Invalidf("profiles.idle.manager: %v", err)
	}
	if err := c.Profiles.Active.Executor.Validate(); err != nil {
		return model.Invalidf("profiles.active.executor: %v", err)
	}
	if err := c.Profiles.Active.Manager.Validate(); err != nil {
		return model.Invalidf("profiles.active.manager: %v", err)
	}

	n := c.Node
	switch {
	case math.IsNaN(n.MaxCPU) || n.MaxCPU <= 0:
		return model.Invalidf("node.max_cpu must be positive, got %v", n.MaxCPU)
	case math.IsNaN(n.MaxMem) || n.MaxMem <= 0:
		return model.Invalidf("node.max_mem must be positive, got %v", n.MaxMem)
	case !nonNegative(n.SystemCPURequest, n.SystemMemRequest, n.SystemCPUUsage, n.SystemMemUsage):
		return model.Invalidf("node system overhead must be non-negative")
	case !nonNegative(n.PricePerHour):
		return model.Invalidf("node.price_per_hour must be non-negative, got %v", n.PricePerHour)
	case n.InstanceType != "" && n.KubeNode != "":
		return model.Invalidf("node.instance_type and node.kube_node are mutually exclusive")
	}

	s := &c.Simulation
	switch {
	case s.Trials <= 0:
		return model.Invalidf("simulation.trials must be positive, got %d", s.Trials)
	case s.Parallelism < 0:
		return model.Invalidf("simulation.parallelism must be non-negative, got %d", s.Parallelism)
	case !validModes[s.Mode]:
		return model.Invalidf("simulation.mode must be first-fit-random, partition, or best-fit, got %q", s.Mode)
	case s.Mode == simulation.ModePartition && s.PartitionNodes <= 0:
		return model.Invalidf("simulation.partition_nodes must be positive in partition mode, got %d", s.PartitionNodes)
	case !validBreakdowns[s.Breakdown]:
		return model.Invalidf("simulation.breakdown must be none, last, or all, got %q", s.Breakdown)
	case s.Timeout < 0:
		return model.Invalidf("simulation.timeout must be non-negative, got %v", s.Timeout)
	}
	if s.Parallelism == 0 {
		s.Parallelism = runtime.NumCPU()
	}

	w := c.Scoring.Weights
	if w.Cost < 0 || w.Density < 0 || w.Risk < 0 {
		return model.Invalidf("scoring weights must be non-negative, got %+v", w)
	}

	cal := c.Calibration
	switch {
	case cal.Percentile < 0 || cal.Percentile > 1.0:
		return model.Invalidf("calibration.percentile must be between 0 and 1.0, got %v", cal.Percentile)
	case cal.Window <= 0:
		return model.Invalidf("calibration.window must be positive, got %v", cal.Window)
	case cal.Step <= 0:
		return model.Invalidf("calibration.step must be positive, got %v", cal.Step)
	case cal.ActiveCPUThreshold < 0:
		return model.Invalidf("calibration.active_cpu_threshold must be non-negative, got %v", cal.ActiveCPUThreshold)
	}

	if c.AWS.CacheTTL < 0 {
		return model.Invalidf("aws.cache_ttl must be non-negative, got %v", c.AWS.CacheTTL)
	}
	if !validFormats[c.Output.Format] {
		return model.Invalidf("output format must be table, json, markdown, or csv, got %q", c.Output.Format)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return model.Invalidf("log.level: %v", err)
	}
	if !validLogFormats[c.Log.Format] {
		return model.Invalidf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// nonNegative reports whether every value is a number >= 0.
func nonNegative(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || v < 0 {
			return false
		}
	}
	return true
}

// detectRegion checks environment variables for the AWS region.
func detectRegion() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_DEFAULT_REGION"); r != "" {
		return r
	}
	return "us-east-1"
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "capsim")
	}
	return ".capsim-cache"
}
