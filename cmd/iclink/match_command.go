package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"iclink/internal/identity"
	"iclink/internal/matching"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var showVariants bool

	cmd := &cobra.Command{
		Use:   "match NAME DOB EYE",
		Short: "Resolve one identity against the roster and explain the decision",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, comps, _, err := ctx.components()
			if err != nil {
				return err
			}
			index, err := comps.LoadIndex(cfg.Paths.RosterFile)
			if err != nil {
				return err
			}

			id := identity.Identity{RawName: args[0], RawDOB: args[1], Eye: identity.ParseEye(args[2])}
			result := comps.Matcher.Match(id, index)
			variants := comps.Matcher.Variations(id.RawName).List()

			pairs := [][2]string{
				{"Variants", itoa(len(variants))},
				{"DOB", valueOr(result.DOB, "(unparseable)")},
				{"Eye", result.Eye.String()},
				{"Strategy", string(result.Strategy)},
			}
			if result.Matched() {
				e := result.Entry
				pairs = append(pairs,
					[2]string{"Score", fmt.Sprintf("%.3f", result.Score)},
					[2]string{"Roster line", itoa(e.Line)},
					[2]string{"Roster name", e.Name},
					[2]string{"Roster key", result.Key.String()},
					[2]string{"Lens size", valueOr(e.LensSize, "-")},
					[2]string{"Vault", valueOr(e.Vault, "-")},
					[2]string{"ICL power", valueOr(e.ICLPower, "-")},
					[2]string{"Exchange", yesNo(e.Exchange)},
					[2]string{"Note", result.Note()},
				)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValues(args[0], pairs))
			if showVariants {
				rows := make([][]string, 0, len(variants))
				for _, v := range variants {
					rows = append(rows, []string{v})
				}
				fmt.Fprintln(out, renderTable("Name variants", []string{"Variant"}, rows))
			}
			if result.Strategy == matching.StrategyNone {
				fmt.Fprintln(out, "No roster entry matched.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showVariants, "variants", false, "List every name variant tried")
	return cmd
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
