package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raoulx24/autosnap/internal/config"
	"github.com/raoulx24/autosnap/internal/journal"
)

func newHistoryCmd(o *options) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := config.LoadOptional(o.configPath, !cmd.Flags().Changed("config"))
			if err != nil {
				return fmt.Errorf("%w: %w", config.ErrInvalid, err)
			}
			if cfg.Journal.Path == "" {
				return errors.New("journal disabled, set journal.path in the config file")
			}

			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, store.Close())
			}()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if runID != "" {
				outcomes, err := store.Outcomes(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(outcomes) == 0 {
					return fmt.Errorf("no outcomes recorded for run %s", runID)
				}
				fmt.Fprintln(w, "VMID\tKIND\tPHASE\tFAILED\tCREATED\tDELETED\tREPLICATED\tERRORS")
				for _, oc := range outcomes {
					fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%d\t%t\t%s\n",
						oc.WorkloadID, oc.Kind, oc.Phase, oc.Failed, dash(oc.Created), oc.Deleted, oc.Replicated,
						dash(strings.ReplaceAll(oc.Errors, "\n", "; ")))
				}
				return w.Flush()
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "RUN ID\tSTARTED\tMODE\tLABEL\tDRY RUN\tWORKLOADS\tFAILED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\t%d\n",
					r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.Label, r.DryRun, r.Workloads, r.Failures)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the per-guest outcomes of one run")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
