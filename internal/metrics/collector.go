package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/guimove/capsim/internal/config"
	"github.com/guimove/capsim/internal/model"
)

var (
	ErrPrometheusUnreachable = errors.New("prometheus endpoint unreachable")
	ErrNoMetricsFound        = errors.New("no pod metrics found for the specified criteria")
)

// Source derives population parameters from observed workloads.
type Source interface {
	// Calibrate summarizes the observed pods into a Calibration.
	Calibrate(ctx context.Context, opts CalibrateOptions) (*Calibration, error)

	// Ping validates connectivity to the metrics backend.
	Ping(ctx context.Context) error

	// BackendType returns the detected backend type.
	BackendType() string
}

// CalibrateOptions configures calibration.
type CalibrateOptions struct {
	Window             time.Duration
	Step               time.Duration
	End                time.Time // zero = now
	Namespaces         []string  // Empty = all namespaces
	ExcludeNamespaces  []string
	Percentile         float64 // usage percentile per pod (default 0.95)
	ActiveCPUThreshold float64 // cores at Percentile that make a pod active
}

// OptionsFromConfig builds calibration options from the configuration.
func OptionsFromConfig(cfg *config.Config) CalibrateOptions {
	return CalibrateOptions{
		Window:             cfg.Calibration.Window,
		Step:               cfg.Calibration.Step,
		Namespaces:         cfg.Kubernetes.Namespaces,
		ExcludeNamespaces:  cfg.Calibration.ExcludeNamespaces,
		Percentile:         cfg.Calibration.Percentile,
		ActiveCPUThreshold: cfg.Calibration.ActiveCPUThreshold,
	}
}

// Calibration is an observed population: how many workloads run, how many
// of them are active, and the mean footprint of each class. CPU is in cores
// and memory in GiB.
type Calibration struct {
	CollectedAt time.Time     `json:"collected_at"`
	Window      time.Duration `json:"window"`
	Backend     string        `json:"backend"`

	TotalCount     int     `json:"total_count"`
	ActiveCount    int     `json:"active_count"`
	ActiveFraction float64 `json:"active_fraction"`

	Idle   model.Footprint `json:"idle"`
	Active model.Footprint `json:"active"`

	// Pods left out of the population.
	DaemonSetPods int `json:"daemonset_pods,omitempty"`
	// Pods with requests but no usage samples; they count as idle.
	NoMetricsPods int `json:"no_metrics_pods,omitempty"`

	// Node count range seen over the window, for comparison with the
	// simulated mean. Zero when unknown.
	ObservedMinNodes int `json:"observed_min_nodes,omitempty"`
	ObservedMaxNodes int `json:"observed_max_nodes,omitempty"`
}

// Apply writes the calibration into the population and profile settings.
//
// The observed active fraction already folds in time-of-day effects, so the
// active hours are set to the full workday. Observed footprints go to the
// executor component and the manager component is cleared.
func (c *Calibration) Apply(cfg *config.Config) {
	cfg.Population.TotalCount = c.TotalCount
	cfg.Population.ActiveFraction = c.ActiveFraction
	cfg.Population.ActiveHoursPerDay = cfg.Population.WorkdayHours
	cfg.Profiles.Idle = model.ClassProfile{Executor: c.Idle}
	cfg.Profiles.Active = model.ClassProfile{Executor: c.Active}
}

func validate(c *Calibration) error {
	switch {
	case c.TotalCount < 0:
		return model.Invalidf("total_count must be non-negative, got %d", c.TotalCount)
	case c.ActiveCount < 0 || c.ActiveCount > c.TotalCount:
		return model.Invalidf("active_count must be between 0 and %d, got %d", c.TotalCount, c.ActiveCount)
	case c.ActiveFraction < 0 || c.ActiveFraction > 1:
		return model.Invalidf("active_fraction must be between 0 and 1, got %v", c.ActiveFraction)
	}
	if err := c.Idle.Validate(); err != nil {
		return model.Invalidf("idle: %v", err)
	}
	if err := c.Active.Validate(); err != nil {
		return model.Invalidf("active: %v", err)
	}
	return nil
}
