// Package backend defines the capabilities the snapshot engine consumes:
// workload inventory, per-kind snapshot primitives and replication.
package backend

import (
	"context"
	"fmt"

	"github.com/raoulx24/autosnap/internal/snapshot"
)

// InventoryProvider lists the workloads autosnap may act on.
type InventoryProvider interface {
	List(ctx context.Context) ([]snapshot.Workload, error)
}

// SnapshotBackend creates, lists and deletes snapshots of one workload kind.
type SnapshotBackend interface {
	List(ctx context.Context, id int) ([]string, error)
	Create(ctx context.Context, id int, name string, includeState bool) error
	Delete(ctx context.Context, id int, name string) error
}

// ReplicationTransport mirrors the storage of a workload to a remote host.
type ReplicationTransport interface {
	Sync(ctx context.Context, id int, destination string) error
}

// Registry resolves the backend responsible for a workload kind.
type Registry map[snapshot.Kind]SnapshotBackend

// For returns the backend registered for kind.
func (r Registry) For(kind snapshot.Kind) (SnapshotBackend, error) {
	b, ok := r[kind]
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: no backend for %s", ErrBackendUnavailable, kind)
	}
	return b, nil
}
