package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"iclink/internal/audit"
	"iclink/internal/export"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Audit the scan directory against the tables of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			ws, err := export.Open(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			defer ws.Close()

			outputs, err := export.LoadOutputs(ws.Dir())
			if err != nil {
				return fmt.Errorf("load run outputs: %w", err)
			}
			auditor := audit.New(cfg, audit.Options{IDDigits: cfg.Audit.IDDigits, Extension: cfg.Audit.ScanExtension}, logger)
			report, err := auditor.Run(cmd.Context(), cfg.Paths.ScanDir, outputs)
			if err != nil {
				return err
			}
			verdicts := audit.Gates(report, cfg.Audit.MaxIncomplete)
			if err := ws.WriteAudit("", report, verdicts); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(report.Tables))
			for _, t := range report.Tables {
				rows = append(rows, []string{t.Name, itoa(t.Len())})
			}
			fmt.Fprintln(out, renderTable(fmt.Sprintf("Audit of %d scan files", report.Sources), []string{"Check", "Rows"}, rows, 1))
			fmt.Fprintln(out, renderKeyValues("Trainable cases", [][2]string{
				{"Training rows", itoa(report.Trainable.Rows)},
				{"With features", itoa(report.Trainable.WithFeatures)},
				{"With outcomes", itoa(report.Trainable.WithOutcomes)},
				{"Complete", itoa(report.Trainable.Complete)},
				{"Incomplete", itoa(report.Trainable.Incomplete)},
			}))
			fmt.Fprintln(out, renderGates(verdicts))
			fmt.Fprintf(out, "Reports written to %s\n", ws.AuditDir())
			return audit.FirstFailure(verdicts)
		},
	}
}
