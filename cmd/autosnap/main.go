package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raoulx24/autosnap/internal/report"
)

const defaultConfigPath = "/etc/autosnap/config.yaml"

var version = "dev"

// codeError ends the process with code without printing anything more.
type codeError struct {
	code int
}

func (e *codeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	var ce *codeError
	switch {
	case err == nil:
		return report.ExitOK
	case errors.As(err, &ce):
		return ce.code
	default:
		fmt.Fprintf(stderr, "autosnap: %v\n", err)
		return report.ExitFatal
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "autosnap [flags] [vmid...]",
		Short: "Take and rotate labelled snapshots of Proxmox containers and VMs",
		Long: "autosnap creates snapshots named auto<label><timestamp> for the selected guests,\n" +
			"keeps the newest --keep per label and deletes the rest. Snapshots it did not\n" +
			"create are never touched.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(cmd, opts, args)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file")

	f := root.Flags()
	f.BoolVarP(&opts.autosnap, "autosnap", "a", false, "create a snapshot and delete the old ones")
	f.BoolVarP(&opts.snap, "snap", "s", false, "create a snapshot only")
	f.BoolVarP(&opts.clean, "clean", "c", false, "delete old snapshots only")
	f.StringSliceVarP(&opts.vmids, "vmid", "v", nil, "guest ids to process, or all")
	f.StringSliceVarP(&opts.exclude, "exclude", "e", nil, "guest ids to skip")
	f.StringSliceVar(&opts.includeTags, "include-tag", nil, "only process guests carrying one of these tags")
	f.StringSliceVar(&opts.excludeTags, "exclude-tag", nil, "skip guests carrying one of these tags")
	f.BoolVar(&opts.requireTargets, "require-targets", false, "fail when no guest is selected")
	f.IntVarP(&opts.keep, "keep", "k", 30, "snapshots to keep per label")
	f.StringVarP(&opts.label, "label", "l", "daily", "snapshot label, e.g. hourly, daily, weekly, monthly")
	f.BoolVarP(&opts.running, "running", "r", false, "only process running guests")
	f.BoolVarP(&opts.includeVMState, "includevmstate", "i", false, "include VM RAM state in the snapshot")
	f.BoolVarP(&opts.dryRun, "dryrun", "d", false, "print what would be done without doing it")
	f.BoolVar(&opts.isoFormat, "date-iso-format", false, "use the ISO 8601 timestamp format in names")
	f.BoolVar(&opts.calendarFormat, "date-calendar-format", false, "use the four digit year timestamp format in names")
	f.BoolVar(&opts.sudo, "sudo", false, "run hypervisor commands with sudo")
	f.StringVar(&opts.replicate, "replicate", "", "replicate to this pve-zsync destination after a snapshot")
	f.BoolVarP(&opts.mute, "mute", "m", false, "print errors only")
	f.IntVar(&opts.concurrency, "concurrency", 1, "guests processed in parallel")
	f.DurationVar(&opts.timeout, "timeout", 0, "timeout of each hypervisor call")
	f.StringVar(&opts.reportFile, "report-file", "", "write a JSON report to this file")

	root.MarkFlagsMutuallyExclusive("autosnap", "snap", "clean")
	root.MarkFlagsOneRequired("autosnap", "snap", "clean")
	root.MarkFlagsMutuallyExclusive("date-iso-format", "date-calendar-format")

	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autosnap %s\n", version)
		},
	}
}
