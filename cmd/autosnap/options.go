package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/autosnap/internal/config"
	"github.com/raoulx24/autosnap/internal/selector"
	"github.com/raoulx24/autosnap/internal/worker"
)

type options struct {
	configPath string

	autosnap, snap, clean bool

	vmids          []string
	exclude        []string
	includeTags    []string
	excludeTags    []string
	requireTargets bool
	running        bool

	keep           int
	label          string
	includeVMState bool
	dryRun         bool
	isoFormat      bool
	calendarFormat bool
	sudo           bool
	replicate      string
	mute           bool
	concurrency    int
	timeout        time.Duration
	reportFile     string
}

func (o *options) mode() worker.Mode {
	switch {
	case o.snap:
		return worker.SnapshotOnly
	case o.clean:
		return worker.PruneOnly
	default:
		return worker.SnapshotAndPrune
	}
}

// loadConfig reads the config file and applies the flags set on cmd. A
// missing file is fine unless --config was given explicitly.
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	cfg, err := config.LoadOptional(o.configPath, !cmd.Flags().Changed("config"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	changed := cmd.Flags().Changed
	if changed("keep") {
		cfg.Snapshot.Keep = o.keep
	}
	if changed("label") {
		cfg.Snapshot.Label = o.label
	}
	if changed("includevmstate") {
		cfg.Snapshot.IncludeVMState = o.includeVMState
	}
	switch {
	case o.isoFormat:
		cfg.Snapshot.Format = "iso"
	case o.calendarFormat:
		cfg.Snapshot.Format = "calendar"
	}
	if changed("sudo") {
		cfg.Backend.Sudo = o.sudo
	}
	if changed("replicate") {
		cfg.Replication.Destination = o.replicate
	}
	if changed("concurrency") {
		cfg.Run.Concurrency = o.concurrency
	}
	if changed("timeout") {
		cfg.Backend.Timeout = o.timeout
	}
	if changed("report-file") {
		cfg.Run.ReportFile = o.reportFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// request turns the target flags into a selector request. Positional args
// are appended to --vmid.
func (o *options) request(args []string) (selector.Request, error) {
	ids, all, err := parseTargets(append(append([]string{}, o.vmids...), args...))
	if err != nil {
		return selector.Request{}, err
	}
	if len(ids) == 0 && !all {
		return selector.Request{}, fmt.Errorf("%w: no guests given, use --vmid <id>... or --vmid all", config.ErrInvalid)
	}
	exclude, excludeAll, err := parseTargets(o.exclude)
	if err != nil {
		return selector.Request{}, err
	}
	if excludeAll {
		return selector.Request{}, fmt.Errorf("%w: --exclude does not accept all", config.ErrInvalid)
	}
	return selector.Request{
		IDs:            ids,
		All:            all,
		Exclude:        exclude,
		IncludeTags:    o.includeTags,
		ExcludeTags:    o.excludeTags,
		RunningOnly:    o.running,
		RequireTargets: o.requireTargets,
	}, nil
}

// parseTargets accepts ids and the keyword all, each value possibly comma
// separated.
func parseTargets(values []string) (ids []int, all bool, err error) {
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "":
			case strings.EqualFold(part, "all"):
				all = true
			default:
				id, err := strconv.Atoi(part)
				if err != nil || id <= 0 {
					return nil, false, fmt.Errorf("%w: invalid guest id %q", config.ErrInvalid, part)
				}
				ids = append(ids, id)
			}
		}
	}
	return ids, all, nil
}
