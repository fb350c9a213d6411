package worker

import (
	"fmt"
	"time"

	"github.com/raoulx24/autosnap/internal/retention"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// Job is one workload submitted to the pool. Index is its slot in the
// result slice.
type Job struct {
	Index    int
	Workload snapshot.Workload
}

// Mode selects which phases a run executes.
type Mode int

const (
	SnapshotAndPrune Mode = iota + 1
	SnapshotOnly
	PruneOnly
)

func (m Mode) String() string {
	switch m {
	case SnapshotAndPrune:
		return "autosnap"
	case SnapshotOnly:
		return "snap"
	case PruneOnly:
		return "clean"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Creates reports whether the mode takes a new snapshot.
func (m Mode) Creates() bool { return m == SnapshotAndPrune || m == SnapshotOnly }

// Prunes reports whether the mode applies retention.
func (m Mode) Prunes() bool { return m == SnapshotAndPrune || m == PruneOnly }

// Run is the immutable context shared by every job of one invocation.
type Run struct {
	ID             string
	Now            time.Time
	Mode           Mode
	Label          snapshot.Label
	Keep           int
	Format         snapshot.Format
	IncludeVMState bool
	DryRun         bool
	// Destination enables replication after a successful create.
	Destination string
	// Cadence, when set, skips creation until the label is due.
	Cadence *retention.Cadence
	// Timeout bounds every backend call. Zero means no bound.
	Timeout time.Duration
}
