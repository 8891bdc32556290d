package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fairvalue/internal/config"
	"fairvalue/internal/coordinator"
)

func newRunCmd(a *app) *cobra.Command {
	var tickers []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Value every configured company and write CSV reports",
		Example: `  fairvalue run
  fairvalue run --ticker GRMN:2020 --ticker COF:2019 --output ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}

			companies := a.cfg.Companies
			if len(tickers) > 0 {
				parsed, err := config.ParseCompanies(tickers)
				if err != nil {
					return err
				}
				companies = parsed
			}

			jobs := make([]coordinator.Job, 0, len(companies))
			for _, c := range companies {
				jobs = append(jobs, coordinator.Job{Ticker: c.Ticker, BreachYear: c.BreachYear})
			}

			coord := coordinator.New(a.builder(a.provider()), a.cfg.OutputDir, jobs,
				coordinator.WithOutput(cmd.OutOrStdout()),
				coordinator.WithLogger(a.logger))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Valuing %d companies...\n", len(jobs))
			fmt.Fprintln(out, "================================================")
			results, err := coord.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("coordinator failed: %w", err)
			}
			fmt.Fprintln(out, "================================================")

			complete := 0
			for _, r := range results {
				if r.OK() {
					complete++
				}
			}
			fmt.Fprintf(out, "%d of %d companies fully valued, reports in %s\n", complete, len(results), a.cfg.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&tickers, "ticker", "t", nil, "Company as TICKER:BREACH_YEAR, repeatable (overrides configured companies)")
	cmd.Flags().StringP("output", "o", "", "Output directory for CSV reports")
	return cmd
}
