package worker

import (
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// Phase is the lifecycle step a workload reached.
type Phase string

const (
	PhaseListing     Phase = "listing"
	PhaseCreating    Phase = "creating"
	PhasePruning     Phase = "pruning"
	PhaseReplicating Phase = "replicating"
	PhaseDone        Phase = "done"
)

// Result is the outcome of one workload. Phase is PhaseDone when every
// applicable phase ran, otherwise the phase at which processing stopped.
type Result struct {
	Workload snapshot.Workload
	Phase    Phase
	Created  string
	Deleted  []string
	Kept     []string
	// Skipped explains why creation did not happen, if it did not.
	Skipped    string
	Replicated bool
	Planned    []Operation
	Errors     []error
}

// Failed reports whether any phase recorded an error.
func (r Result) Failed() bool { return len(r.Errors) > 0 }

func (r *Result) fail(err error) {
	r.Errors = append(r.Errors, err)
}
