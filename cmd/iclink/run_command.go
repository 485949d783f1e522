package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"iclink/internal/audit"
	"iclink/internal/config"
	"iclink/internal/export"
	"iclink/internal/ledger"
	"iclink/internal/linkage"
	"iclink/internal/logging"
	"iclink/internal/matching"
	"iclink/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var concurrency int
	var skipLedger bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Link scans to the roster, write training tables, and audit the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, comps, logger, err := ctx.components()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Extraction.Concurrency = concurrency
			}
			outcome, err := executeRun(cmd.Context(), cfg, comps, logger, !skipLedger)
			if err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), outcome)
			return audit.FirstFailure(outcome.verdicts)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override extraction.concurrency for this run")
	cmd.Flags().BoolVar(&skipLedger, "no-ledger", false, "Do not record this run in the ledger")
	return cmd
}

type runOutcome struct {
	result   *linkage.Result
	report   *audit.Report
	verdicts []audit.Verdict
	outputs  string
	recorded bool
}

// executeRun performs one full linkage run. Output tables and the audit are
// always written before gate verdicts are returned to the caller.
func executeRun(ctx context.Context, cfg *config.Config, comps *linkage.Components, logger *slog.Logger, record bool) (*runOutcome, error) {
	log := logging.NewComponentLogger(logger, "run")

	if err := preflight.Failed(preflight.RunAll(cfg)); err != nil {
		return nil, err
	}

	index, err := comps.LoadIndex(cfg.Paths.RosterFile)
	if err != nil {
		return nil, err
	}
	if n := index.Collisions(); n > 0 {
		log.Warn("roster keys overwritten by later rows", "collisions", n)
	}

	paths, err := linkage.ListScanFiles(cfg.Paths.ScanDir, cfg.Audit.ScanExtension)
	if err != nil {
		return nil, err
	}

	ws, err := export.Open(cfg.Paths.OutputDir)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	pipeline, err := linkage.NewFromComponents(comps, index, logger, linkage.Options{
		Concurrency:               cfg.Extraction.Concurrency,
		BlankOutcomeOnEyeMismatch: cfg.Matching.BlankOutcomeOnEyeMismatch,
	})
	if err != nil {
		return nil, err
	}
	result, err := pipeline.Run(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := ws.WriteRun(result); err != nil {
		return nil, err
	}

	auditor := audit.New(cfg, audit.Options{IDDigits: cfg.Audit.IDDigits, Extension: cfg.Audit.ScanExtension}, logger)
	report, err := auditor.Run(ctx, cfg.Paths.ScanDir, export.Outputs(result))
	if err != nil {
		return nil, err
	}
	verdicts := audit.Gates(report, cfg.Audit.MaxIncomplete)
	if err := ws.WriteAudit(result.RunID, report, verdicts); err != nil {
		return nil, err
	}
	for _, v := range verdicts {
		if !v.Passed {
			log.Error("audit gate failed", "gate", v.Gate, logging.FieldRunID, result.RunID, logging.Error(v.Err))
		}
	}

	outcome := &runOutcome{result: result, report: report, verdicts: verdicts, outputs: ws.Dir()}
	if record && cfg.Paths.LedgerPath != "" {
		store, err := ledger.Open(cfg.Paths.LedgerPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		entry := ledger.FromRun(result, report, verdicts, ledger.Sources{
			ScanDir:    cfg.Paths.ScanDir,
			RosterFile: cfg.Paths.RosterFile,
			OutputDir:  ws.Dir(),
		})
		if err := store.RecordRun(ctx, entry); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		outcome.recorded = true
	}
	return outcome, nil
}

func printRunSummary(out io.Writer, o *runOutcome) {
	r := o.result
	t := o.report.Trainable
	fmt.Fprintln(out, renderKeyValues("Run "+r.RunID, [][2]string{
		{"Scans", itoa(len(r.Files))},
		{"Training rows", itoa(len(r.Training))},
		{"Unmatched", itoa(len(r.Unmatched))},
		{"Failed", itoa(len(r.Failed))},
		{"With features", itoa(t.WithFeatures)},
		{"With outcomes", itoa(t.WithOutcomes)},
		{"Trainable", itoa(t.Complete)},
		{"Output", o.outputs},
		{"Recorded", yesNo(o.recorded)},
	}))

	counts := make(map[matching.Strategy]int)
	for _, m := range r.Matched {
		counts[m.Match.Strategy]++
	}
	var strategyRows [][]string
	for _, s := range matching.Strategies() {
		if s == matching.StrategyNone {
			continue
		}
		strategyRows = append(strategyRows, []string{string(s), itoa(counts[s])})
	}
	fmt.Fprintln(out, renderTable("Match strategies", []string{"Strategy", "Scans"}, strategyRows, 1))

	fmt.Fprintln(out, renderGates(o.verdicts))

	if warnings := warningRows(r); len(warnings) > 0 {
		fmt.Fprintln(out, renderTable("Validation warnings", []string{"File", "Warning"}, warnings))
	}
}

func renderGates(verdicts []audit.Verdict) string {
	rows := make([][]string, 0, len(verdicts))
	for _, v := range verdicts {
		names := make([]string, 0, len(v.Findings))
		for name := range v.Findings {
			names = append(names, name)
		}
		sort.Strings(names)
		findings := make([]string, 0, len(names))
		for _, name := range names {
			findings = append(findings, fmt.Sprintf("%s=%d", name, v.Findings[name]))
		}
		status := "PASS"
		if !v.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{v.Gate, status, strings.Join(findings, ", ")})
	}
	return renderTable("Audit gates", []string{"Gate", "Status", "Findings"}, rows)
}

func warningRows(r *linkage.Result) [][]string {
	var rows [][]string
	for _, m := range r.Matched {
		if m.Vector == nil {
			continue
		}
		for _, w := range m.Vector.Warnings {
			rows = append(rows, []string{m.File, w})
		}
	}
	for _, u := range r.Unmatched {
		if u.Record == nil {
			continue
		}
		for _, w := range u.Record.Warnings {
			rows = append(rows, []string{u.File, w})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}
