// Package replication mirrors workload storage to another host after a
// snapshot was taken.
package replication

import (
	"context"
	"fmt"
	"strconv"

	"github.com/raoulx24/autosnap/internal/backend"
	"github.com/raoulx24/autosnap/internal/hostexec"
)

// Options configure the pve-zsync job.
type Options struct {
	Command string // defaults to pve-zsync
	Name    string // job name, namespaces the replicated snapshots
	MaxSnap int    // snapshots kept on the destination
}

// ZSync replicates through pve-zsync.
type ZSync struct {
	run  hostexec.RunFunc
	opts Options
}

func NewZSync(run hostexec.RunFunc, opts Options) *ZSync {
	if opts.Command == "" {
		opts.Command = "pve-zsync"
	}
	if opts.MaxSnap < 1 {
		opts.MaxSnap = 1
	}
	return &ZSync{run: run, opts: opts}
}

func (z *ZSync) Sync(ctx context.Context, id int, destination string) error {
	if destination == "" {
		return fmt.Errorf("%w: no destination", backend.ErrReplication)
	}
	if _, err := z.run(ctx, z.SyncCommand(id, destination)...); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrReplication, err)
	}
	return nil
}

// SyncCommand is the argv Sync runs.
func (z *ZSync) SyncCommand(id int, destination string) []string {
	argv := []string{z.opts.Command, "sync", "--source", strconv.Itoa(id), "--dest", destination}
	if z.opts.Name != "" {
		argv = append(argv, "--name", z.opts.Name)
	}
	return append(argv, "--maxsnap", strconv.Itoa(z.opts.MaxSnap))
}
