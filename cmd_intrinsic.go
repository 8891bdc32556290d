package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fairvalue/internal/report"
	"fairvalue/internal/valuation"
)

func newIntrinsicCmd() *cobra.Command {
	policy := valuation.DefaultPolicy()

	cmd := &cobra.Command{
		Use:   "intrinsic EPS GROWTH_RATE",
		Short: "Project EPS ten years out and print fair value and margin-of-safety price",
		Long: `Projects EPS ten years at GROWTH_RATE (a decimal, 0.3 for 30%), prices it
at a growth-derived P/E and discounts it back. Needs no API access.`,
		Example: "  fairvalue intrinsic 0.5 0.3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid EPS %q: %w", args[0], err)
			}
			growth, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid growth rate %q: %w", args[1], err)
			}
			if err := policy.Validate(); err != nil {
				return err
			}

			iv := valuation.NewProjector(policy, nil).Project(eps, growth)
			out := cmd.OutOrStdout()
			if iv.Degenerate {
				fmt.Fprintln(out, "EPS and growth rate must both be positive, no valuation possible")
				return nil
			}

			fmt.Fprintf(out, "Growth rate:      %s %%\n", strconv.FormatFloat(valuation.Round2(growth*100), 'f', 2, 64))
			fmt.Fprintf(out, "EPS in 10 years:  %.2f\n", iv.EPS10y)
			fmt.Fprintf(out, "Future P/E:       %.2f\n", iv.FuturePE)
			fmt.Fprintf(out, "Future value:     %.2f\n", iv.FutureValue)
			fmt.Fprintf(out, "Fair value today: %.2f\n", iv.FairValue)
			fmt.Fprintf(out, "%s:  %.2f\n", report.MOSColumn(policy.MOSFraction), iv.MOSPrice)
			return nil
		},
	}

	cmd.Flags().Float64Var(&policy.DiscountRate, "discount-rate", policy.DiscountRate, "Annual discount rate")
	cmd.Flags().Float64Var(&policy.MOSFraction, "mos", policy.MOSFraction, "Margin of safety fraction")
	cmd.Flags().Float64Var(&policy.FuturePEMultiplier, "pe-multiplier", policy.FuturePEMultiplier, "Future P/E per unit of growth rate")
	return cmd
}
