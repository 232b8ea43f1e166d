package config

import (
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/guimove/capsim/internal/model"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestDefault_MatchesReferenceScenario(t *testing.T) {
	cfg := Default()
	if cfg.Population.TotalCount != 10000 {
		t.Errorf("TotalCount = %d, want 10000", cfg.Population.TotalCount)
	}
	if cfg.Node.MaxMem != 16 {
		t.Errorf("MaxMem = %v, want 16", cfg.Node.MaxMem)
	}
	if cfg.Profiles.Idle.Executor.MemUsage != 0.2 || cfg.Profiles.Active.Executor.MemUsage != 2.0 {
		t.Errorf("unexpected memory usage defaults %+v", cfg.Profiles)
	}
	if cfg.Simulation.Trials != 100 {
		t.Errorf("Trials = %d, want 100", cfg.Simulation.Trials)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative total", func(c *Config) { c.Population.TotalCount = -1 }},
		{"fraction above one", func(c *Config) { c.Population.ActiveFraction = 1.5 }},
		{"active hours beyond workday", func(c *Config) { c.Population.ActiveHoursPerDay = 9 }},
		{"zero workday", func(c *Config) { c.Population.WorkdayHours = 0 }},
		{"negative idle usage", func(c *Config) { c.Profiles.Idle.Executor.MemUsage = -0.1 }},
		{"negative active manager", func(c *Config) { c.Profiles.Active.Manager.CPURequest = -1 }},
		{"zero max cpu", func(c *Config) { c.Node.MaxCPU = 0 }},
		{"negative max mem", func(c *Config) { c.Node.MaxMem = -16 }},
		{"NaN max cpu", func(c *Config) { c.Node.MaxCPU = math.NaN() }},
		{"NaN max mem", func(c *Config) { c.Node.MaxMem = math.NaN() }},
		{"negative system usage", func(c *Config) { c.Node.SystemMemUsage = -1 }},
		{"NaN system request", func(c *Config) { c.Node.SystemCPURequest = math.NaN() }},
		{"NaN idle usage", func(c *Config) { c.Profiles.Idle.Executor.CPUUsage = math.NaN() }},
		{"two capacity sources", func(c *Config) { c.Node.InstanceType = "m5.xlarge"; c.Node.KubeNode = "node-1" }},
		{"zero trials", func(c *Config) { c.Simulation.Trials = 0 }},
		{"negative trials", func(c *Config) { c.Simulation.Trials = -5 }},
		{"negative parallelism", func(c *Config) { c.Simulation.Parallelism = -1 }},
		{"unknown mode", func(c *Config) { c.Simulation.Mode = "worst-fit" }},
		{"partition without nodes", func(c *Config) { c.Simulation.Mode = "partition"; c.Simulation.PartitionNodes = 0 }},
		{"unknown breakdown", func(c *Config) { c.Simulation.Breakdown = "some" }},
		{"negative timeout", func(c *Config) { c.Simulation.Timeout = -1 }},
		{"negative weight", func(c *Config) { c.Scoring.Weights.Risk = -1 }},
		{"percentile above one", func(c *Config) { c.Calibration.Percentile = 1.5 }},
		{"negative percentile", func(c *Config) { c.Calibration.Percentile = -0.1 }},
		{"zero window", func(c *Config) { c.Calibration.Window = 0 }},
		{"zero step", func(c *Config) { c.Calibration.Step = 0 }},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "logfmt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, model.ErrInvalidConfiguration) {
				t.Errorf("error should wrap ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestPopulationStats(t *testing.T) {
	cfg := Default()
	cfg.Population.TotalCount = 250
	cfg.Population.ActiveFraction = 0.3
	cfg.Population.ActiveHoursPerDay = 4
	cfg.Population.WorkdayHours = 10

	got := cfg.PopulationStats()
	want := model.Population{TotalCount: 250, ActiveFraction: 0.3, ActiveHoursPerDay: 4, WorkdayHours: 10}
	if got != want {
		t.Errorf("PopulationStats() = %+v, want %+v", got, want)
	}
}

func TestValidate_PartitionNodesIgnoredInElasticMode(t *testing.T) {
	cfg := Default()
	cfg.Simulation.PartitionNodes = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_FixesZeroParallelism(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Parallelism = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Simulation.Parallelism != runtime.NumCPU() {
		t.Errorf("expected parallelism to be fixed to %d, got %d", runtime.NumCPU(), cfg.Simulation.Parallelism)
	}
}

func TestNodeSpec(t *testing.T) {
	cfg := Default()
	cfg.Node.SystemCPURequest = 0.1
	cfg.Node.SystemMemUsage = 0.7

	spec := cfg.NodeSpec()
	if spec.MaxCPU != 4 || spec.MaxMem != 16 {
		t.Errorf("unexpected capacity %+v", spec)
	}
	if spec.SystemRequest.CPU != 0.1 || spec.SystemUsage.Mem != 0.7 {
		t.Errorf("unexpected overhead %+v", spec)
	}
}

func TestApplyCapacity(t *testing.T) {
	cfg := Default()
	cfg.ApplyCapacity(model.NodeCapacity{
		CPU: 8, Mem: 32,
		SystemRequest: model.Resources{CPU: 0.09, Mem: 2.5},
		PricePerHour:  0.384,
	})

	if cfg.Node.MaxCPU != 8 || cfg.Node.MaxMem != 32 {
		t.Errorf("capacity not applied: %+v", cfg.Node)
	}
	if cfg.Node.SystemCPURequest != 0.09 || cfg.Node.SystemMemRequest != 2.5 {
		t.Errorf("system request not applied: %+v", cfg.Node)
	}
	if cfg.Node.PricePerHour != 0.384 {
		t.Errorf("price not applied: %v", cfg.Node.PricePerHour)
	}

	// A capacity without a price keeps the configured one.
	cfg.ApplyCapacity(model.NodeCapacity{CPU: 4, Mem: 16})
	if cfg.Node.PricePerHour != 0.384 {
		t.Errorf("price should be kept, got %v", cfg.Node.PricePerHour)
	}
}

func TestApplyCapacity_SpotPricing(t *testing.T) {
	cfg := Default()
	cfg.AWS.SpotPricing = true
	cfg.ApplyCapacity(model.NodeCapacity{CPU: 4, Mem: 16, PricePerHour: 0.192, SpotPricePerHour: 0.07})
	if cfg.Node.PricePerHour != 0.07 {
		t.Errorf("spot price should win, got %v", cfg.Node.PricePerHour)
	}

	cfg = Default()
	cfg.AWS.SpotPricing = true
	cfg.ApplyCapacity(model.NodeCapacity{CPU: 4, Mem: 16, PricePerHour: 0.192})
	if cfg.Node.PricePerHour != 0.192 {
		t.Errorf("on-demand price should be the fallback, got %v", cfg.Node.PricePerHour)
	}
}
