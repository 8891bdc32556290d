package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newGrowthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "growth TICKER BREACH_YEAR",
		Short:   "Print the metrics table and growth summary for one company",
		Example: "  fairvalue growth COF 2019",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := strings.ToUpper(args[0])
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid breach year %q: %w", args[1], err)
			}

			if err := a.load(cmd); err != nil {
				return err
			}

			rep, buildErr := a.builder(a.provider()).Summarize(cmd.Context(), ticker, year)
			if rep == nil {
				return buildErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nMetrics for %s (start %d, breach %d):\n%s\n",
				ticker, rep.StartYear, year, strings.Repeat("-", 50))
			if err := rep.WriteTable(out); err != nil {
				return err
			}
			return buildErr
		},
	}
}
