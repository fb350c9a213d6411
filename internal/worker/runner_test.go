package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

func TestRunAll_OrderAndIsolation(t *testing.T) {
	good := newFakeBackend(map[int][]string{100: fiveDaily(), 102: fiveDaily()})
	bad := newFakeBackend(nil)
	bad.listErr = errors.New("pct: command not found")

	w := New(backend.Registry{snapshot.VirtualMachine: good, snapshot.Container: bad}, nil, snapshot.NewCodec(nil), nil)
	workloads := []snapshot.Workload{
		vm,
		ct,
		{ID: 102, Kind: snapshot.VirtualMachine},
	}

	for _, concurrency := range []int{1, 3, 10} {
		good.snaps = map[int][]string{100: fiveDaily(), 102: fiveDaily()}
		results := w.RunAll(context.Background(), baseRun(), workloads, concurrency)
		require.Len(t, results, 3)

		assert.Equal(t, 100, results[0].Workload.ID)
		assert.False(t, results[0].Failed())
		assert.Equal(t, 101, results[1].Workload.ID)
		assert.True(t, results[1].Failed())
		assert.Equal(t, 102, results[2].Workload.ID)
		assert.False(t, results[2].Failed())
		assert.Len(t, results[2].Deleted, 3)
	}
}

func TestRunAll_Empty(t *testing.T) {
	w := New(backend.Registry{}, nil, snapshot.NewCodec(nil), nil)
	assert.Empty(t, w.RunAll(context.Background(), baseRun(), nil, 4))
}

func TestRunAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := newWorker(newFakeBackend(map[int][]string{}), nil)
	results := w.RunAll(ctx, baseRun(), []snapshot.Workload{vm, ct}, 1)
	require.Len(t, results, 2)
	for i, r := range results {
		assert.True(t, r.Failed(), "result %d", i)
		assert.Equal(t, []int{100, 101}[i], r.Workload.ID)
	}
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	q.Push(Job{Index: 0})
	q.Push(Job{Index: 1})
	q.Close()

	j, ok := q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, 0, j.Index)
	assert.Len(t, q.Drain(), 1)

	_, ok = q.Pop(context.Background())
	assert.False(t, ok)
}

func TestMode(t *testing.T) {
	assert.True(t, SnapshotAndPrune.Creates())
	assert.True(t, SnapshotAndPrune.Prunes())
	assert.True(t, SnapshotOnly.Creates())
	assert.False(t, SnapshotOnly.Prunes())
	assert.False(t, PruneOnly.Creates())
	assert.True(t, PruneOnly.Prunes())
	assert.Equal(t, "clean", PruneOnly.String())
}
