package worker

import (
	"context"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/logging"
	"github.com/raoulx24/autosnap/internal/retention"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// prune deletes the snapshots of group beyond run.Keep, oldest first.
// Every deletion is attempted; it returns true when the workload must stop.
func (w *Worker) prune(ctx context.Context, run Run, b backend.SnapshotBackend, wl snapshot.Workload,
	group []snapshot.Managed, res *Result, log logging.Logger) bool {

	log.Debug("entering Worker.prune()")
	d := retention.Decide(group, run.Keep)
	for _, m := range d.Keep {
		res.Kept = append(res.Kept, m.Name)
	}

	for _, m := range d.Delete {
		err := w.call(ctx, run.Timeout, backend.ErrDelete, func(ctx context.Context) error {
			return b.Delete(ctx, wl.ID, m.Name)
		})
		if err != nil {
			log.Error("deleting snapshot failed", "name", m.Name, "error", err)
			res.fail(err)
			if aborts(ctx, err) {
				return true
			}
			continue
		}
		res.Deleted = append(res.Deleted, m.Name)
		log.Info("snapshot deleted", "name", m.Name, "dryRun", run.DryRun)
	}
	return false
}
