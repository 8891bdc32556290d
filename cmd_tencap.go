package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fairvalue/internal/fetcher"
	"fairvalue/internal/report"
	"fairvalue/internal/valuation"
)

func newTenCapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "tencap TICKER YEAR...",
		Short:   "Print the ten-cap owner-earnings analysis for one or more years",
		Example: "  fairvalue tencap COF 2018 2019 2020 2021 2022",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := strings.ToUpper(args[0])
			years := make([]int, 0, len(args)-1)
			for _, s := range args[1:] {
				y, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("invalid year %q: %w", s, err)
				}
				years = append(years, y)
			}

			if err := a.load(cmd); err != nil {
				return err
			}

			st, err := fetcher.FetchStatements(cmd.Context(), a.provider(), ticker)
			if err != nil {
				return err
			}

			policy := a.cfg.Policy()
			calc := valuation.NewTenCapCalculator(policy, a.observer())
			out := cmd.OutOrStdout()

			prices := make(map[int]string, len(years))
			for _, year := range years {
				res, ok := calc.Compute(year, st.Income, st.CashFlow, st.Metrics)
				if !ok {
					fmt.Fprintf(out, "\nCould not run a TEN CAP analysis for %s (%d)\n", ticker, year)
					prices[year] = report.NotAvailable
					continue
				}
				if err := report.WriteTenCap(out, ticker, res, policy.MaintenanceCapexWeight); err != nil {
					return err
				}
				prices[year] = "$" + strconv.FormatFloat(valuation.Round2(res.Price), 'f', 2, 64)
			}

			fmt.Fprintf(out, "\nTEN CAP analysis for %s over %d years:\n", ticker, len(years))
			for _, year := range years {
				fmt.Fprintf(out, "%d: %s\n", year, prices[year])
			}
			return nil
		},
	}
}
