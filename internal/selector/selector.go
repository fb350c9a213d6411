// Package selector resolves which workloads a run targets.
package selector

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/logging"
	"github.com/raoulx24/autosnap/internal/snapshot"
)

// ErrNoWorkloadsResolved is returned when targets were required but every
// candidate was filtered out.
var ErrNoWorkloadsResolved = errors.New("no workloads resolved")

// Request describes the target set. A non-empty IDs list takes precedence
// over All.
type Request struct {
	IDs            []int
	All            bool
	Exclude        []int
	IncludeTags    []string
	ExcludeTags    []string
	RunningOnly    bool
	RequireTargets bool
}

// Selector filters the inventory down to the requested workloads.
type Selector struct {
	inventory backend.InventoryProvider
	log       logging.Logger
}

func New(inventory backend.InventoryProvider, log logging.Logger) *Selector {
	return &Selector{inventory: inventory, log: log.With("component", "selector")}
}

// Resolve fetches the inventory once and applies the filters of req in
// order: ids or all, excluded ids, include tags, exclude tags, running.
// The result is sorted by id.
func (s *Selector) Resolve(ctx context.Context, req Request) ([]snapshot.Workload, error) {
	inv, err := s.inventory.List(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrInventoryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", backend.ErrInventoryUnavailable, err)
	}

	byID := make(map[int]snapshot.Workload, len(inv))
	for _, w := range inv {
		byID[w.ID] = w
	}

	var candidates []snapshot.Workload
	switch {
	case len(req.IDs) > 0:
		if req.All {
			s.log.Warn("explicit ids given together with all, using ids", "ids", req.IDs)
		}
		seen := make(map[int]bool, len(req.IDs))
		for _, id := range req.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			w, ok := byID[id]
			if !ok {
				s.log.Warn("workload not found in inventory, skipping", "vmid", id)
				continue
			}
			candidates = append(candidates, w)
		}
	case req.All:
		candidates = slices.Clone(inv)
	}

	out := candidates[:0]
	for _, w := range candidates {
		switch {
		case slices.Contains(req.Exclude, w.ID):
			s.log.Debug("excluded by id", "vmid", w.ID)
		case len(req.IncludeTags) > 0 && !w.HasAnyTag(req.IncludeTags):
			s.log.Debug("missing include tag", "vmid", w.ID)
		case w.HasAnyTag(req.ExcludeTags):
			s.log.Debug("excluded by tag", "vmid", w.ID)
		case req.RunningOnly && !w.Running:
			s.log.Info("status is stopped, skipping", "vmid", w.ID)
		default:
			out = append(out, w)
		}
	}

	slices.SortFunc(out, func(a, b snapshot.Workload) int { return a.ID - b.ID })

	if len(out) == 0 && req.RequireTargets {
		return nil, ErrNoWorkloadsResolved
	}
	return out, nil
}
