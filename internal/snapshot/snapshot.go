// Package snapshot holds the domain types shared by autosnap components and
// the codec that maps labels and instants to snapshot names.
package snapshot

import (
	"fmt"
	"slices"
	"time"
)

// Kind is the virtualization flavour of a workload.
type Kind int

const (
	Container Kind = iota + 1
	VirtualMachine
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "container"
	case VirtualMachine:
		return "vm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Workload is a read-only view of one container or VM, fetched once per run.
type Workload struct {
	ID      int
	Kind    Kind
	Name    string
	Node    string
	Running bool
	Tags    []string
}

// HasAnyTag reports whether the workload carries at least one of tags.
func (w Workload) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(w.Tags, t) {
			return true
		}
	}
	return false
}

// Label is a retention namespace. Snapshots sharing a label rotate together.
type Label string

const (
	Minute  Label = "minute"
	Hourly  Label = "hourly"
	Daily   Label = "daily"
	Weekly  Label = "weekly"
	Monthly Label = "monthly"
)

// KnownLabels lists the built-in labels, shortest cadence first.
var KnownLabels = []Label{Minute, Hourly, Daily, Weekly, Monthly}

// Valid reports whether l can be embedded in a name: lowercase letters only.
func (l Label) Valid() bool {
	if l == "" {
		return false
	}
	for _, r := range l {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Managed is a snapshot whose name decoded under the autosnap grammar.
type Managed struct {
	Name    string
	Label   Label
	Format  Format
	Instant time.Time

	// Position is the index in the backend listing; it breaks ties
	// between equal instants.
	Position int
}
