// Package retention decides which managed snapshots of a label to rotate out.
package retention

import (
	"slices"
	"time"

	"github.com/raoulx24/autosnap/internal/snapshot"
)

// Decision is the outcome of applying keep to one label group.
// Both slices are ordered oldest first.
type Decision struct {
	Keep   []snapshot.Managed
	Delete []snapshot.Managed
}

// Decide keeps the newest keep snapshots of group and marks the rest for
// deletion. Equal instants keep backend listing order. group is not modified.
func Decide(group []snapshot.Managed, keep int) Decision {
	if keep < 0 {
		keep = 0
	}

	sorted := slices.Clone(group)
	// Sort oldest → newest
	slices.SortStableFunc(sorted, func(a, b snapshot.Managed) int {
		if c := a.Instant.Compare(b.Instant); c != 0 {
			return c
		}
		return a.Position - b.Position
	})

	if len(sorted) <= keep {
		return Decision{Keep: sorted}
	}

	cut := len(sorted) - keep
	return Decision{
		Keep:   sorted[cut:],
		Delete: sorted[:cut],
	}
}

// Newest returns the latest instant in group, or the zero time if empty.
func Newest(group []snapshot.Managed) time.Time {
	var newest time.Time
	for _, m := range group {
		if m.Instant.After(newest) {
			newest = m.Instant
		}
	}
	return newest
}
