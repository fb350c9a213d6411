package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/fs"
	"github.com/raoulx24/autosnap/internal/snapshot"
	"github.com/raoulx24/autosnap/internal/worker"
)

var started = time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

func sample(dryRun bool) *Report {
	run := worker.Run{ID: "run-1", Now: started, Mode: worker.SnapshotAndPrune, Label: snapshot.Daily, Keep: 3, DryRun: dryRun}
	results := []worker.Result{
		{
			Workload: snapshot.Workload{ID: 100, Kind: snapshot.VirtualMachine, Name: "web"},
			Phase:    worker.PhaseDone,
			Created:  "autodaily240106000000",
			Deleted:  []string{"autodaily240101000000", "autodaily240102000000"},
			Planned: []worker.Operation{
				{Op: "create", WorkloadID: 100, Command: "qm snapshot 100 autodaily240106000000"},
			},
		},
		{
			Workload: snapshot.Workload{ID: 101, Kind: snapshot.Container},
			Phase:    worker.PhaseListing,
			Errors:   []error{fmt.Errorf("%w: pct: not found", backend.ErrBackendUnavailable)},
		},
	}
	return New(run, started.Add(time.Minute), results)
}

func TestNew(t *testing.T) {
	r := sample(false)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "autosnap", r.Mode)
	assert.Equal(t, "daily", r.Label)
	require.Len(t, r.Workloads, 2)
	assert.False(t, r.Workloads[0].Failed)
	assert.True(t, r.Workloads[1].Failed)
	assert.Equal(t, "listing", r.Workloads[1].Phase)
	assert.Equal(t, 1, r.Failures())
	assert.Equal(t, ExitFailures, r.ExitCode())
}

func TestExitCode_AllOK(t *testing.T) {
	r := New(worker.Run{Mode: worker.PruneOnly}, started, []worker.Result{{Phase: worker.PhaseDone}})
	assert.Equal(t, ExitOK, r.ExitCode())
	assert.Equal(t, ExitOK, New(worker.Run{}, started, nil).ExitCode())
}

func TestWriteText(t *testing.T) {
	var out, errOut bytes.Buffer
	sample(true).WriteText(&out, &errOut, false)

	assert.Equal(t, "vm 100 (web): ok, would create autodaily240106000000, would delete 2\n"+
		"  would run: qm snapshot 100 autodaily240106000000\n"+
		"container 101: failed at listing\n"+
		"2 workload(s), 1 failed\n", out.String())
	assert.Equal(t, "autosnap: container 101: backend unavailable: pct: not found\n", errOut.String())
}

func TestWriteText_MuteKeepsErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	sample(false).WriteText(&out, &errOut, true)

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "container 101")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, sample(false).WriteJSON(context.Background(), fs.New(), path))

	data, err := fs.New().ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Workloads, 2)
	assert.Equal(t, []string{"backend unavailable: pct: not found"}, got.Workloads[1].Errors)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}
