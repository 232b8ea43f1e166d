// Package catalog synthesizes a workload population from aggregate counts
// and per-class resource profiles.
package catalog

import (
	"math"

	"github.com/guimove/capsim/internal/model"
)

// Split returns how many workloads of the population are active and idle.
//
// The active count is total * activeFraction * activeHours / workdayHours,
// rounded half away from zero. The two counts always sum to the total.
func Split(p model.Population) (active, idle int, err error) {
	if err := Validate(p); err != nil {
		return 0, 0, err
	}

	share := p.ActiveFraction * p.ActiveHoursPerDay / p.WorkdayHours
	active = int(math.Round(float64(p.TotalCount) * share))
	if active > p.TotalCount {
		active = p.TotalCount
	}
	if active < 0 {
		active = 0
	}
	return active, p.TotalCount - active, nil
}

// Validate checks the population ranges.
func Validate(p model.Population) error {
	switch {
	case p.TotalCount < 0:
		return model.Invalidf("total_count must be non-negative, got %d", p.TotalCount)
	case math.IsNaN(p.ActiveFraction) || p.ActiveFraction < 0 || p.ActiveFraction > 1:
		return model.Invalidf("active_fraction must be between 0 and 1, got %v", p.ActiveFraction)
	case math.IsNaN(p.WorkdayHours) || p.WorkdayHours <= 0:
		return model.Invalidf("workday_hours must be positive, got %v", p.WorkdayHours)
	case math.IsNaN(p.ActiveHoursPerDay) || p.ActiveHoursPerDay < 0 || p.ActiveHoursPerDay > p.WorkdayHours:
		return model.Invalidf("active_hours_per_day must be between 0 and %v, got %v",
			p.WorkdayHours, p.ActiveHoursPerDay)
	}
	return nil
}

// Build returns exactly p.TotalCount workloads: the active ones first, then
// the idle ones.
func Build(p model.Population, idle, active model.ClassProfile) ([]model.Workload, error) {
	nActive, nIdle, err := Split(p)
	if err != nil {
		return nil, err
	}
	if err := validateProfile("active", active); err != nil {
		return nil, err
	}
	if err := validateProfile("idle", idle); err != nil {
		return nil, err
	}

	activeWl := model.NewWorkload(active.Profile(model.ClassActive))
	idleWl := model.NewWorkload(idle.Profile(model.ClassIdle))

	workloads := make([]model.Workload, 0, p.TotalCount)
	for i := 0; i < nActive; i++ {
		workloads = append(workloads, activeWl)
	}
	for i := 0; i < nIdle; i++ {
		workloads = append(workloads, idleWl)
	}
	return workloads, nil
}

// validateProfile checks each component on its own, so a negative executor
// cannot be hidden by its manager.
func validateProfile(class string, cp model.ClassProfile) error {
	if err := cp.Executor.Validate(); err != nil {
		return model.Invalidf("%s executor: %v", class, err)
	}
	if err := cp.Manager.Validate(); err != nil {
		return model.Invalidf("%s manager: %v", class, err)
	}
	return nil
}
