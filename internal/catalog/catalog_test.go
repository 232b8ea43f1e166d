package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guimove/capsim/internal/model"
)

var (
	idleProfile = model.ClassProfile{
		Executor: model.Footprint{CPURequest: 0.1, MemRequest: 0.2, CPUUsage: 0.01, MemUsage: 0.2},
	}
	activeProfile = model.ClassProfile{
		Executor: model.Footprint{CPURequest: 0.5, MemRequest: 1.5, CPUUsage: 0.5, MemUsage: 1.5},
		Manager:  model.Footprint{CPURequest: 0.1, MemRequest: 0.5, CPUUsage: 0.05, MemUsage: 0.5},
	}
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		pop        model.Population
		wantActive int
		wantIdle   int
	}{
		{"all active", model.Population{TotalCount: 10, ActiveFraction: 1, ActiveHoursPerDay: 8, WorkdayHours: 8}, 10, 0},
		{"none active", model.Population{TotalCount: 10, ActiveFraction: 0, ActiveHoursPerDay: 8, WorkdayHours: 8}, 0, 10},
		{"zero hours", model.Population{TotalCount: 10, ActiveFraction: 1, ActiveHoursPerDay: 0, WorkdayHours: 8}, 0, 10},
		{"half day", model.Population{TotalCount: 10000, ActiveFraction: 0.06, ActiveHoursPerDay: 4, WorkdayHours: 8}, 300, 9700},
		{"half rounds away from zero", model.Population{TotalCount: 5, ActiveFraction: 0.5, ActiveHoursPerDay: 8, WorkdayHours: 8}, 3, 2},
		{"below half rounds down", model.Population{TotalCount: 7, ActiveFraction: 0.2, ActiveHoursPerDay: 8, WorkdayHours: 8}, 1, 6},
		{"empty", model.Population{TotalCount: 0, ActiveFraction: 0.5, ActiveHoursPerDay: 8, WorkdayHours: 8}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, idle, err := Split(tt.pop)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, active)
			assert.Equal(t, tt.wantIdle, idle)
			assert.Equal(t, tt.pop.TotalCount, active+idle)
		})
	}
}

func TestSplit_SumInvariant(t *testing.T) {
	for total := 0; total <= 200; total += 7 {
		for _, frac := range []float64{0, 0.01, 0.125, 0.333, 0.5, 0.77, 1} {
			for _, hours := range []float64{0, 1.5, 4, 7.9, 8} {
				pop := model.Population{TotalCount: total, ActiveFraction: frac, ActiveHoursPerDay: hours, WorkdayHours: 8}
				active, idle, err := Split(pop)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, active, 0)
				assert.LessOrEqual(t, active, total)
				assert.Equal(t, total, active+idle, "pop=%+v", pop)
			}
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		pop  model.Population
	}{
		{"negative total", model.Population{TotalCount: -1, ActiveFraction: 0.5, ActiveHoursPerDay: 8, WorkdayHours: 8}},
		{"fraction above one", model.Population{TotalCount: 1, ActiveFraction: 1.1, ActiveHoursPerDay: 8, WorkdayHours: 8}},
		{"negative fraction", model.Population{TotalCount: 1, ActiveFraction: -0.1, ActiveHoursPerDay: 8, WorkdayHours: 8}},
		{"hours above workday", model.Population{TotalCount: 1, ActiveFraction: 0.5, ActiveHoursPerDay: 9, WorkdayHours: 8}},
		{"negative hours", model.Population{TotalCount: 1, ActiveFraction: 0.5, ActiveHoursPerDay: -1, WorkdayHours: 8}},
		{"zero workday", model.Population{TotalCount: 1, ActiveFraction: 0.5, ActiveHoursPerDay: 0, WorkdayHours: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pop)
			assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
		})
	}
}

func TestBuild(t *testing.T) {
	pop := model.Population{TotalCount: 100, ActiveFraction: 0.3, ActiveHoursPerDay: 8, WorkdayHours: 8}

	workloads, err := Build(pop, idleProfile, activeProfile)
	require.NoError(t, err)
	require.Len(t, workloads, 100)

	active, idle := model.CountByClass(workloads)
	assert.Equal(t, 30, active)
	assert.Equal(t, 70, idle)

	// Manager overhead is summed into the active footprint.
	assert.InDelta(t, 0.6, workloads[0].Request.CPU, 1e-9)
	assert.InDelta(t, 2.0, workloads[0].Usage.Mem, 1e-9)
	assert.Equal(t, model.ClassIdle, workloads[99].Class)
	assert.InDelta(t, 0.2, workloads[99].Request.Mem, 1e-9)
}

func TestBuild_RejectsNegativeProfile(t *testing.T) {
	pop := model.Population{TotalCount: 1, ActiveFraction: 1, ActiveHoursPerDay: 8, WorkdayHours: 8}
	bad := model.ClassProfile{Executor: model.Footprint{CPURequest: -1}}

	_, err := Build(pop, idleProfile, bad)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestBuild_RejectsNegativeComponentHiddenBySum(t *testing.T) {
	pop := model.Population{TotalCount: 1, ActiveFraction: 1, ActiveHoursPerDay: 8, WorkdayHours: 8}
	bad := model.ClassProfile{
		Executor: model.Footprint{CPURequest: -1, MemRequest: 1},
		Manager:  model.Footprint{CPURequest: 2, MemRequest: 1},
	}

	_, err := Build(pop, idleProfile, bad)
	require.ErrorIs(t, err, model.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "active executor")
}

func TestBuild_RejectsNaNProfile(t *testing.T) {
	pop := model.Population{TotalCount: 1, ActiveFraction: 0, ActiveHoursPerDay: 0, WorkdayHours: 8}
	bad := model.ClassProfile{Manager: model.Footprint{MemUsage: math.NaN()}}

	_, err := Build(pop, bad, activeProfile)
	require.ErrorIs(t, err, model.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "idle manager")
}

func TestBuild_InvalidPopulation(t *testing.T) {
	_, err := Build(model.Population{TotalCount: -5, WorkdayHours: 8}, idleProfile, activeProfile)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}
