package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/hostexec"
)

// Operation is a mutation a dry run would have performed.
type Operation struct {
	Op         string   `json:"op"` // "create", "delete", "sync"
	WorkloadID int      `json:"workloadId"`
	Args       []string `json:"args"`
	// Command is the equivalent hypervisor command line.
	Command string `json:"command"`
}

type createRenderer interface {
	CreateCommand(id int, name string, includeState bool) []string
	DeleteCommand(id int, name string) []string
}

type syncRenderer interface {
	SyncCommand(id int, destination string) []string
}

// plan collects the operations of one workload.
type plan struct {
	ops []Operation
}

func (p *plan) record(op string, id int, args []string, argv []string) {
	cmd := hostexec.Format(append([]string{op, strconv.Itoa(id)}, args...))
	if len(argv) > 0 {
		cmd = hostexec.Format(argv)
	}
	p.ops = append(p.ops, Operation{Op: op, WorkloadID: id, Args: args, Command: cmd})
}

// dryBackend lists through inner and records mutations instead of
// performing them.
type dryBackend struct {
	inner backend.SnapshotBackend
	plan  *plan
}

func (d *dryBackend) List(ctx context.Context, id int) ([]string, error) {
	return d.inner.List(ctx, id)
}

func (d *dryBackend) Create(_ context.Context, id int, name string, includeState bool) error {
	var argv []string
	if r, ok := d.inner.(createRenderer); ok {
		argv = r.CreateCommand(id, name, includeState)
	}
	d.plan.record("create", id, []string{name, fmt.Sprintf("vmstate=%t", includeState)}, argv)
	return nil
}

func (d *dryBackend) Delete(_ context.Context, id int, name string) error {
	var argv []string
	if r, ok := d.inner.(createRenderer); ok {
		argv = r.DeleteCommand(id, name)
	}
	d.plan.record("delete", id, []string{name}, argv)
	return nil
}

type dryTransport struct {
	inner backend.ReplicationTransport
	plan  *plan
}

func (d *dryTransport) Sync(_ context.Context, id int, destination string) error {
	var argv []string
	if r, ok := d.inner.(syncRenderer); ok {
		argv = r.SyncCommand(id, destination)
	}
	d.plan.record("sync", id, []string{destination}, argv)
	return nil
}
