package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"iclink/internal/config"
	"iclink/internal/features"
	"iclink/internal/scanfile"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Extract features from one scan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, comps, _, err := ctx.components()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			doc, err := scanfile.ReadFile(path)
			if err != nil {
				return err
			}
			rec, err := comps.Extractor.Extract(doc, filepath.Base(path))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValues(rec.File, [][2]string{
				{"Name", rec.Name},
				{"DOB", valueOr(rec.DOB, rec.RawDOB)},
				{"Eye", rec.Eye.String()},
				{"Exam date", valueOr(rec.ExamDate, "-")},
			}))

			rows := make([][]string, 0, len(features.Columns()))
			for _, name := range features.Columns() {
				if name == features.SEQ || name == features.ICLPower || name == features.LensSize || name == features.Vault {
					continue
				}
				value, note := "-", ""
				if v := rec.Value(name); v != nil {
					value = strconv.FormatFloat(*v, 'f', -1, 64)
				} else if raw, ok := rec.OutOfRange[name]; ok {
					note = "out of range: " + strconv.FormatFloat(raw, 'f', -1, 64)
				}
				rows = append(rows, []string{name, value, note})
			}
			fmt.Fprintln(out, renderTable("Features", []string{"Feature", "Value", "Note"}, rows, 1))

			if len(rec.Warnings) > 0 {
				warnings := make([][]string, 0, len(rec.Warnings))
				for _, w := range rec.Warnings {
					warnings = append(warnings, []string{w})
				}
				fmt.Fprintln(out, renderTable("Warnings", []string{"Warning"}, warnings))
			}
			return nil
		},
	}
}
