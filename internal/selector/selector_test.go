package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/logging"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

type fakeInventory struct {
	workloads []snapshot.Workload
	err       error
}

func (f fakeInventory) List(context.Context) ([]snapshot.Workload, error) {
	return f.workloads, f.err
}

var cluster = []snapshot.Workload{
	{ID: 102, Kind: snapshot.VirtualMachine, Running: true, Tags: []string{"snap"}},
	{ID: 100, Kind: snapshot.Container, Running: true, Tags: []string{"snap", "prod"}},
	{ID: 101, Kind: snapshot.Container, Running: false, Tags: nil},
	{ID: 103, Kind: snapshot.VirtualMachine, Running: false, Tags: []string{"snap"}},
	{ID: 104, Kind: snapshot.VirtualMachine, Running: true, Tags: []string{"scratch"}},
}

func resolve(t *testing.T, req Request) []int {
	t.Helper()
	s := New(fakeInventory{workloads: cluster}, logging.Discard())
	ws, err := s.Resolve(context.Background(), req)
	require.NoError(t, err)
	ids := make([]int, 0, len(ws))
	for _, w := range ws {
		ids = append(ids, w.ID)
	}
	return ids
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []int
	}{
		{"explicit minus exclude", Request{IDs: []int{100, 101, 102}, Exclude: []int{101}}, []int{100, 102}},
		{"all", Request{All: true}, []int{100, 101, 102, 103, 104}},
		{"all with include tag", Request{All: true, IncludeTags: []string{"snap"}}, []int{100, 102, 103}},
		{"all with include tag running only", Request{All: true, IncludeTags: []string{"snap"}, RunningOnly: true}, []int{100, 102}},
		{"explicit running only", Request{IDs: []int{100, 101, 102}, RunningOnly: true}, []int{100, 102}},
		{"exclude tag", Request{All: true, ExcludeTags: []string{"prod", "scratch"}}, []int{101, 102, 103}},
		{"explicit wins over all", Request{IDs: []int{104}, All: true}, []int{104}},
		{"unknown ids skipped", Request{IDs: []int{999, 100}}, []int{100}},
		{"duplicates collapsed", Request{IDs: []int{100, 100}}, []int{100}},
		{"nothing requested", Request{}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(t, tt.req))
		})
	}
}

func TestResolve_EmptyIsValidUnlessRequired(t *testing.T) {
	s := New(fakeInventory{workloads: cluster}, logging.Discard())

	ws, err := s.Resolve(context.Background(), Request{All: true, IncludeTags: []string{"none"}})
	require.NoError(t, err)
	assert.Empty(t, ws)

	ws, err = s.Resolve(context.Background(), Request{IDs: []int{101}, RunningOnly: true})
	require.NoError(t, err, "explicit ids filtered out by running")
	assert.Empty(t, ws)

	ws, err = s.Resolve(context.Background(), Request{IDs: []int{101}, Exclude: []int{101}})
	require.NoError(t, err, "explicit ids filtered out by exclude")
	assert.Empty(t, ws)

	_, err = s.Resolve(context.Background(), Request{IDs: []int{101}, RunningOnly: true, RequireTargets: true})
	assert.ErrorIs(t, err, ErrNoWorkloadsResolved)
}

func TestResolve_UnknownExplicitIDs(t *testing.T) {
	s := New(fakeInventory{workloads: cluster}, logging.Discard())
	ws, err := s.Resolve(context.Background(), Request{IDs: []int{998, 999}})
	require.NoError(t, err)
	assert.Empty(t, ws)

	_, err = s.Resolve(context.Background(), Request{IDs: []int{998, 999}, RequireTargets: true})
	assert.ErrorIs(t, err, ErrNoWorkloadsResolved)
}

func TestResolve_InventoryUnavailable(t *testing.T) {
	s := New(fakeInventory{err: errors.New("pvesh: connection refused")}, logging.Discard())
	_, err := s.Resolve(context.Background(), Request{All: true})
	assert.ErrorIs(t, err, backend.ErrInventoryUnavailable)
}

func TestResolve_DoesNotMutateInventory(t *testing.T) {
	inv := []snapshot.Workload{{ID: 2}, {ID: 1}}
	s := New(fakeInventory{workloads: inv}, logging.Discard())
	_, err := s.Resolve(context.Background(), Request{All: true, Exclude: []int{2}})
	require.NoError(t, err)
	assert.Equal(t, 2, inv[0].ID)
	assert.Equal(t, 1, inv[1].ID)
}
