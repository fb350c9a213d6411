package backend

import (
	"context"
	"errors"
	"fmt"
)

// Per-run failures.
var ErrInventoryUnavailable = errors.New("inventory unavailable")

// Per-workload failures. They are collected by the orchestrator and never
// abort sibling workloads.
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrCreate             = errors.New("create snapshot failed")
	ErrDelete             = errors.New("delete snapshot failed")
	ErrReplication        = errors.New("replication failed")
	ErrTimeout            = errors.New("timed out")
)

// Classify wraps err with kind, or with ErrTimeout when err stems from an
// expired deadline. A nil err stays nil.
func Classify(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
