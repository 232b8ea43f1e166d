package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guimove/capsim/internal/model"
)

func TestBestFit_PrefersTightestNode(t *testing.T) {
	pool := model.NewNodePool(model.NodeSpec{MaxCPU: 4, MaxMem: 4})
	pool.Grow()
	busy := pool.Grow()
	busy.TryAdmit(model.Workload{Request: model.Resources{CPU: 2, Mem: 2}})
	pool.Grow()

	ok := (BestFit{}).Place(unitWorkload(model.ClassIdle), pool, nil)
	require.True(t, ok)
	assert.Equal(t, 2, busy.WorkloadCount())
}

func TestBestFit_RefusesWhenFull(t *testing.T) {
	pool := model.NewNodePool(model.NodeSpec{MaxCPU: 1, MaxMem: 1})
	pool.Grow().TryAdmit(unitWorkload(model.ClassIdle))
	assert.False(t, (BestFit{}).Place(unitWorkload(model.ClassIdle), pool, nil))
}

func TestBestFitRunner_PacksAsTightlyAsFirstFit(t *testing.T) {
	runner := NewBestFitRunner(model.NodeSpec{MaxCPU: 4, MaxMem: 4})
	out, err := runner.Run(context.Background(), repeat(unitWorkload(model.ClassActive), 10), testRand(1), false)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NodeCount)
	assert.Equal(t, ModeBestFit, runner.Name())
}
