package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"fairvalue/internal/valuation"
)

// WriteTable prints the metrics table and, when present, the summary as
// aligned plain text.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(metricsColumns, "\t")+"\t")
	for _, m := range r.Metrics {
		fmt.Fprintln(tw, strings.Join(m.cells(), "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rows := r.SummaryRows()
	if len(rows) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, kv := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}

// WriteTenCap prints the owner-earnings breakdown behind a ten-cap price.
func WriteTenCap(w io.Writer, ticker string, r valuation.TenCapResult, capexWeight float64) error {
	sign := "+"
	if r.WorkingCapitalChange < 0 {
		sign = "-"
	}
	rule := strings.Repeat("-", 50)

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "\nTEN CAP analysis for %s (%d)\n%s\n", ticker, r.Year, rule)
	fmt.Fprintf(tw, "Profit before tax:\t$%sM\n", money(r.ProfitBeforeTax))
	fmt.Fprintf(tw, "+ Depreciation:\t$%sM\n", money(r.Depreciation))
	fmt.Fprintf(tw, "%s Working capital change:\t$%sM\n", sign, money(math.Abs(r.WorkingCapitalChange)))
	fmt.Fprintf(tw, "- %s%% maintenance capex:\t$%sM\n", decimal.NewFromFloat(capexWeight*100).Round(2).String(), money(r.AdjustedMaintenanceCapex))
	fmt.Fprintf(tw, "%s\n", rule)
	fmt.Fprintf(tw, "= Owner earnings:\t$%sM\n", money(r.OwnerEarnings))
	fmt.Fprintf(tw, "Shares (Mio):\t%s\n", money(r.SharesOutstanding))
	fmt.Fprintf(tw, "Earnings per share:\t$%s\n", money(r.EPS))
	fmt.Fprintf(tw, "%s\n", strings.Repeat("=", 50))
	fmt.Fprintf(tw, "TEN CAP buy price:\t$%s\n", money(r.Price))
	return tw.Flush()
}
