package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/autosnap/internal/config"
	"github.com/raoulx24/autosnap/internal/fs"
	"github.com/raoulx24/autosnap/internal/journal"
	"github.com/raoulx24/autosnap/internal/lock"
	"github.com/raoulx24/autosnap/internal/logging"
	"github.com/raoulx24/autosnap/internal/metrics"
	"github.com/raoulx24/autosnap/internal/report"
	"github.com/raoulx24/autosnap/internal/selector"
	"github.com/raoulx24/autosnap/internal/snapshot"
	"github.com/raoulx24/autosnap/internal/worker"
)

// now is the run clock.
var now = time.Now

func runSnapshots(cmd *cobra.Command, o *options, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	req, err := o.request(args)
	if err != nil {
		return err
	}

	log := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Mute:   o.mute,
	})
	filesystem := fs.New()

	if cfg.Run.LockFile != "" {
		pid := lock.New(cfg.Run.LockFile, filesystem)
		if err := pid.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pid.Release(); err != nil {
				log.Warn("releasing lock file failed", "path", cfg.Run.LockFile, "error", err)
			}
		}()
	}

	env, err := buildEnvironment(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			log.Warn("closing backend failed", "error", err)
		}
	}()

	workloads, err := selector.New(env.inventory, log).Resolve(ctx, req)
	if err != nil {
		return err
	}

	run, codec, err := newRun(cfg, o)
	if err != nil {
		return err
	}
	log = log.With("run", run.ID)
	log.Info("run started", "mode", run.Mode.String(), "label", run.Label, "keep", run.Keep, "workloads", len(workloads))

	results := worker.New(env.backends, env.transport, codec, log).RunAll(ctx, run, workloads, cfg.Run.Concurrency)
	rep := report.New(run, now(), results)
	rep.WriteText(cmd.OutOrStdout(), cmd.ErrOrStderr(), o.mute)

	publish(ctx, cfg, rep, filesystem, log)
	log.Info("run finished", "failed", rep.Failures(), "duration", rep.Finished.Sub(rep.Started).String())

	if code := rep.ExitCode(); code != report.ExitOK {
		return &codeError{code: code}
	}
	return nil
}

// newRun freezes the settings shared by every workload.
func newRun(cfg *config.Config, o *options) (worker.Run, *snapshot.Codec, error) {
	format, err := cfg.Format()
	if err != nil {
		return worker.Run{}, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return worker.Run{}, nil, err
	}
	cadences, err := cfg.Cadences()
	if err != nil {
		return worker.Run{}, nil, err
	}

	label := cfg.Label()
	run := worker.Run{
		ID:             report.NewRunID(),
		Now:            now().In(loc),
		Mode:           o.mode(),
		Label:          label,
		Keep:           cfg.Snapshot.Keep,
		Format:         format,
		IncludeVMState: cfg.Snapshot.IncludeVMState,
		DryRun:         o.dryRun,
		Destination:    cfg.Replication.Destination,
		Cadence:        cadences[label],
		Timeout:        cfg.Backend.Timeout,
	}
	return run, snapshot.NewCodec(loc, label), nil
}

// publish writes the optional report file, metrics textfile and journal
// entry. Failures are logged and do not change the exit code.
func publish(ctx context.Context, cfg *config.Config, rep *report.Report, filesystem fs.FS, log logging.Logger) {
	if path := cfg.Run.ReportFile; path != "" {
		if err := rep.WriteJSON(ctx, filesystem, path); err != nil {
			log.Error("writing report failed", "error", err)
		}
	}

	if path := cfg.Metrics.Textfile; path != "" {
		m := metrics.New()
		m.Observe(rep)
		if err := m.WriteTextfile(path); err != nil {
			log.Error("writing metrics failed", "error", err)
		}
	}

	if path := cfg.Journal.Path; path != "" {
		if err := record(ctx, path, rep); err != nil {
			log.Error("recording run failed", "journal", path, "error", err)
		}
	}
}

func record(ctx context.Context, path string, rep *report.Report) (err error) {
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return store.Record(ctx, rep)
}
