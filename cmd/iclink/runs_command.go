package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"iclink/internal/audit"
	"iclink/internal/ledger"
	"iclink/internal/matching"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					shortID(r.ID),
					r.StartedAt.Local().Format(time.DateTime),
					itoa(r.Scans),
					itoa(r.Training),
					itoa(r.Unmatched),
					itoa(r.Failed),
					itoa(r.Trainable),
					yesNo(r.GatesPassed),
				})
			}
			fmt.Fprintln(out, renderTable("", []string{"ID", "Started", "Scans", "Training", "Unmatched", "Failed", "Trainable", "Gates"}, rows, 2, 3, 4, 5, 6))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")

	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var showDecisions bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one run's strategy and audit counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			c := cmd.Context()
			run, err := store.GetRun(c, args[0])
			if err != nil {
				return err
			}
			strategies, err := store.StrategyCounts(c, run.ID)
			if err != nil {
				return err
			}
			audits, err := store.AuditCounts(c, run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pairs := [][2]string{
				{"ID", run.ID},
				{"Started", run.StartedAt.Local().Format(time.DateTime)},
				{"Duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()},
				{"Scan dir", run.ScanDir},
				{"Roster", run.RosterFile},
				{"Output", run.OutputDir},
				{"Trainable", itoa(run.Trainable)},
				{"Gates passed", yesNo(run.GatesPassed)},
			}
			if run.GateError != "" {
				pairs = append(pairs, [2]string{"Gate error", run.GateError})
			}
			fmt.Fprintln(out, renderKeyValues("Run", pairs))

			var strategyRows [][]string
			for _, s := range matching.Strategies() {
				if s == matching.StrategyNone {
					continue
				}
				strategyRows = append(strategyRows, []string{string(s), itoa(strategies[string(s)])})
			}
			strategyRows = append(strategyRows,
				[]string{ledger.OutcomeUnmatched, itoa(strategies[ledger.OutcomeUnmatched])},
				[]string{ledger.OutcomeFailed, itoa(strategies[ledger.OutcomeFailed])},
			)
			fmt.Fprintln(out, renderTable("Decisions", []string{"Outcome", "Scans"}, strategyRows, 1))

			auditRows := make([][]string, 0, len(audits))
			for _, name := range audit.TableNames() {
				if n, ok := audits[name]; ok {
					auditRows = append(auditRows, []string{name, itoa(n)})
				}
			}
			fmt.Fprintln(out, renderTable("Audit", []string{"Check", "Rows"}, auditRows, 1))

			if showDecisions {
				decisions, err := store.Decisions(c, run.ID)
				if err != nil {
					return err
				}
				sort.SliceStable(decisions, func(i, j int) bool { return decisions[i].File < decisions[j].File })
				rows := make([][]string, 0, len(decisions))
				for _, d := range decisions {
					detail := d.Note
					if d.Reason != "" {
						detail = d.Reason
					}
					line := ""
					if d.RosterLine > 0 {
						line = itoa(d.RosterLine)
					}
					rows = append(rows, []string{d.File, d.Outcome, d.Strategy, fmt.Sprintf("%.3f", d.Score), line, detail})
				}
				fmt.Fprintln(out, renderTable("Scans", []string{"File", "Outcome", "Strategy", "Score", "Line", "Detail"}, rows, 3, 4))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDecisions, "decisions", false, "List the decision for every scan")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
