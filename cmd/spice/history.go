package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-statements/internal/cli"
	"github.com/Veraticus/spice-statements/internal/export"
)

func historyCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded categorization runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, cli.FormatInfo("No runs recorded yet"))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tACCOUNT\tTOTAL\tCLASSIFIER\tNEW PATTERNS\tSOURCE")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d (%.1f%%)\t%d\t%s\n",
					shortID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					run.Account,
					run.Stats.Total,
					run.Stats.LLMCount,
					run.Stats.LLMPercent,
					run.Stats.NewPatterns,
					run.Source)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.AddCommand(historyShowCmd(a))
	cmd.AddCommand(historyDeleteCmd(a))
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func historyShowCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the transactions and decisions of a run",
		Long:  `Show a recorded run. Any unique prefix of the run ID is accepted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, cli.FormatTitle(fmt.Sprintf("Run %s", run.ID)))
			fmt.Fprintf(a.out, "Account: %s\nSource:  %s\nStarted: %s\n\n",
				run.Account, run.Source, run.StartedAt.Local().Format("2006-01-02 15:04:05"))

			if err := cli.RenderTransactions(a.out, run.Transactions); err != nil {
				return err
			}
			if err := cli.RenderStats(a.out, run.Stats); err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tPASS\tRULE\tCATEGORY")
			for _, d := range run.Decisions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.Index+1, d.Pass, d.Rule, d.Category)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(run.Proposed) > 0 {
				fmt.Fprintf(a.out, "\nProposed %d pattern(s), approved %d\n", len(run.Proposed), len(run.Approved))
				if err := cli.RenderProposals(a.out, run.Approved); err != nil {
					return err
				}
			}

			if outPath != "" {
				if err := export.WriteFile(a.fs, outPath, run.Transactions, &run.Stats); err != nil {
					return persistError(outPath, err)
				}
				fmt.Fprintln(a.out, cli.FormatSuccess("Wrote "+outPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "export the run's transactions to a .csv or .xlsx file")
	return cmd
}

func historyDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteRun(ctx, run.ID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.FormatSuccess("Deleted run "+run.ID))
			return nil
		},
	}
}
