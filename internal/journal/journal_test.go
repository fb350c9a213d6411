package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/autosnap/internal/report"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleReport(id string, started time.Time) *report.Report {
	return &report.Report{
		RunID:    id,
		Started:  started,
		Finished: started.Add(time.Minute),
		Mode:     "autosnap",
		Label:    "daily",
		Keep:     3,
		Workloads: []report.Outcome{
			{ID: 101, Kind: "container", Phase: "listing", Failed: true, Errors: []string{"backend unavailable"}},
			{ID: 100, Kind: "vm", Phase: "done", Created: "autodaily240106000000", Deleted: []string{"a", "b"}},
		},
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, s.Record(ctx, sampleReport(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 2, runs[0].Workloads)
	assert.Equal(t, 1, runs[0].Failures)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOutcomes(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, sampleReport("run-x", time.Now())))

	out, err := s.Outcomes(ctx, "run-x")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 100, out[0].WorkloadID)
	assert.Equal(t, 2, out[0].Deleted)
	assert.Equal(t, 101, out[1].WorkloadID)
	assert.True(t, out[1].Failed)
	assert.Equal(t, "backend unavailable", out[1].Errors)
}

func TestRecord_DuplicateRunID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, sampleReport("same", time.Now())))
	assert.Error(t, s.Record(ctx, sampleReport("same", time.Now())))
}

func TestRecord_MissingRunID(t *testing.T) {
	assert.Error(t, openStore(t).Record(context.Background(), &report.Report{}))
}
