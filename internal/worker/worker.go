// Package worker runs the snapshot lifecycle of each workload: list, create,
// prune and replicate, isolated from its siblings.
package worker

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/logging"
	"github.com/raoulx24/autosnap/internal/retention"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// Worker applies a Run to workloads through the registered backends.
type Worker struct {
	backends  backend.Registry
	transport backend.ReplicationTransport
	codec     *snapshot.Codec
	log       logging.Logger
}

// New creates a worker. transport may be nil when replication is unused.
func New(backends backend.Registry, transport backend.ReplicationTransport, codec *snapshot.Codec, log logging.Logger) *Worker {
	if log == nil {
		log = logging.Discard()
	}
	log.Debug("creating worker")
	return &Worker{
		backends:  backends,
		transport: transport,
		codec:     codec,
		log:       log,
	}
}

// Handle processes one workload. Failures are recorded in the result and
// never returned.
func (w *Worker) Handle(ctx context.Context, run Run, wl snapshot.Workload) (res Result) {
	log := w.log.With("vmid", wl.ID, "kind", wl.Kind.String())
	log.Debug("entering Worker.Handle()")
	res = Result{Workload: wl, Phase: PhaseListing}

	b, err := w.backends.For(wl.Kind)
	if err != nil {
		res.fail(err)
		return res
	}
	transport := w.transport
	var p *plan
	if run.DryRun {
		p = &plan{}
		b = &dryBackend{inner: b, plan: p}
		if transport != nil {
			transport = &dryTransport{inner: transport, plan: p}
		}
	}
	defer func() {
		if p != nil {
			res.Planned = p.ops
		}
	}()

	var names []string
	err = w.call(ctx, run.Timeout, backend.ErrBackendUnavailable, func(ctx context.Context) error {
		var err error
		names, err = b.List(ctx, wl.ID)
		return err
	})
	if err != nil {
		log.Error("listing snapshots failed", "error", err)
		res.fail(err)
		return res
	}
	group := w.codec.Group(names)[run.Label]
	log.Debug("snapshots listed", "total", len(names), "managed", len(group), "label", run.Label)

	if run.Mode.Creates() {
		res.Phase = PhaseCreating
		var abort bool
		group, abort = w.create(ctx, run, b, wl, names, group, &res, log)
		if abort {
			return res
		}
	}

	if run.Mode.Prunes() {
		res.Phase = PhasePruning
		if w.prune(ctx, run, b, wl, group, &res, log) {
			return res
		}
	}

	if run.Destination != "" && res.Created != "" && transport != nil {
		res.Phase = PhaseReplicating
		err := w.call(ctx, run.Timeout, backend.ErrReplication, func(ctx context.Context) error {
			return transport.Sync(ctx, wl.ID, run.Destination)
		})
		if err != nil {
			log.Error("replication failed", "destination", run.Destination, "error", err)
			res.fail(err)
			return res
		}
		res.Replicated = true
		log.Info("replicated", "destination", run.Destination)
	}

	res.Phase = PhaseDone
	return res
}

// create takes the snapshot of run.Label and returns the group including it.
// abort is true when the workload must stop.
func (w *Worker) create(ctx context.Context, run Run, b backend.SnapshotBackend, wl snapshot.Workload,
	names []string, group []snapshot.Managed, res *Result, log logging.Logger) ([]snapshot.Managed, bool) {

	name, err := w.codec.Encode(run.Label, run.Now, run.Format)
	if err != nil {
		res.fail(backend.Classify(backend.ErrCreate, err))
		return group, false
	}
	if slices.Contains(names, name) {
		log.Warn("snapshot already exists, skipping create", "name", name)
		res.Skipped = "already exists"
		return group, false
	}
	if !run.Cadence.Due(run.Now, retention.Newest(group)) {
		log.Info("label not due, skipping create", "label", run.Label, "cadence", run.Cadence.String())
		res.Skipped = "not due"
		return group, false
	}

	includeState := run.IncludeVMState && wl.Kind == snapshot.VirtualMachine
	err = w.call(ctx, run.Timeout, backend.ErrCreate, func(ctx context.Context) error {
		return b.Create(ctx, wl.ID, name, includeState)
	})
	if err != nil {
		log.Error("creating snapshot failed", "name", name, "error", err)
		res.fail(err)
		return group, aborts(ctx, err)
	}

	res.Created = name
	log.Info("snapshot created", "name", name, "dryRun", run.DryRun)
	if m, ok := w.codec.TryDecode(name); ok {
		m.Position = len(names)
		group = append(slices.Clone(group), m)
	}
	return group, false
}

// call runs fn under the per-call timeout and classifies its error.
func (w *Worker) call(ctx context.Context, timeout time.Duration, kind error, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return backend.Classify(kind, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return backend.Classify(kind, fn(ctx))
}

// aborts reports whether err ends processing of the workload: a timed out
// call or a cancelled run.
func aborts(ctx context.Context, err error) bool {
	return errors.Is(err, backend.ErrTimeout) || ctx.Err() != nil
}
