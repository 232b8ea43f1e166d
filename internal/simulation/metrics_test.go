package simulation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guimove/capsim/internal/model"
)

func counterValue(t *testing.T, m *Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMetrics_RecordsBatch(t *testing.T) {
	m := NewMetrics()
	e := NewEngine(NewTrialRunner(model.NodeSpec{MaxCPU: 4, MaxMem: 4}), WithSeed(1), WithMetrics(m))

	_, err := e.Run(context.Background(), repeat(unitWorkload(model.ClassIdle), 10), 12)
	require.NoError(t, err)

	assert.Equal(t, 12.0, counterValue(t, m, "capsim_trials_total", "completed"))

	path := filepath.Join(t.TempDir(), "capsim.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "capsim_trial_nodes_bucket")
	assert.Contains(t, string(data), `capsim_trial_overflow_nodes_count{resource="memory"} 12`)
	assert.Contains(t, string(data), "capsim_batch_partial 0")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observeTrial(model.TrialOutcome{NodeCount: 1}, 0)
	m.observeFailure()
	m.setPartial(true)
}
