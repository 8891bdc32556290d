package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"fairvalue/internal/valuation"
)

// NotAvailable marks a value that could not be computed.
const NotAvailable = "N/A"

// noROIC marks a year the provider reported no ROIC for.
const noROIC = "–"

// Metrics table columns.
const (
	ColYear         = "Year"
	ColRevenue      = "Revenue (Mio)"
	ColFreeCashFlow = "Free Cash Flow (Mio)"
	ColEPS          = "EPS"
	ColROIC         = "ROIC"
)

// Valuation columns. The margin-of-safety price column is named after the
// configured fraction, see MOSColumn.
const (
	ColEPS10y          = "EPS in 10 Years"
	ColFutureValue     = "Future Value"
	ColFairValue       = "Fair Value MOS"
	ColTenCap          = "TEN CAP Buy Price"
	ColTenCapFairValue = "Fair Value TEN CAP"
	ColGrowth          = "Growth Rate (%)"
	ColPrice           = "Stock Price (12-31)"
	ColPriceDate       = "Price Date Used"
)

var metricsColumns = []string{ColYear, ColRevenue, ColFreeCashFlow, ColEPS, ColROIC}

// MOSColumn names the margin-of-safety price column, e.g. "MOS Price (50%)".
func MOSColumn(fraction float64) string {
	return fmt.Sprintf("MOS Price (%s%%)", decimal.NewFromFloat(fraction*100).Round(2).String())
}

// Columns returns the full report header.
func (r *Report) Columns() []string {
	cols := append([]string{}, metricsColumns...)
	return append(cols,
		ColEPS10y, ColFutureValue, ColFairValue, MOSColumn(r.MOSFraction),
		ColTenCap, ColTenCapFairValue, ColGrowth, ColPrice, ColPriceDate,
	)
}

// FileName is the report file name for ticker.
func FileName(ticker string) string {
	return ticker + "_metrics.csv"
}

// money formats v with two decimals.
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(valuation.Round2(v)).StringFixed(2)
}

// percent formats a percentage value as "12.34 %".
func percent(v float64) string {
	return money(v) + " %"
}

func (m YearMetrics) cells() []string {
	roic := noROIC
	if m.HasROIC {
		roic = percent(m.ROIC * 100)
	}
	return []string{strconv.Itoa(m.Year), money(m.RevenueMio), money(m.FreeCashFlowMio), money(m.EPS), roic}
}

// SummaryRows returns the label/value pairs of the margin-of-safety summary.
func (r *Report) SummaryRows() [][2]string {
	if r.Summary == nil {
		return nil
	}
	s := r.Summary
	tenCap, tenCapFair := NotAvailable, NotAvailable
	if s.TenCapOK {
		tenCap, tenCapFair = money(s.TenCap.Price), money(s.TenCap.FairValue())
	}
	return [][2]string{
		{"Book CAGR (avg)", percent(s.Growth.Metric(valuation.MetricBook))},
		{"EPS CAGR (avg)", percent(s.Growth.Metric(valuation.MetricEPS))},
		{"Revenue/Share CAGR (avg)", percent(s.Growth.Metric(valuation.MetricRevenue))},
		{"Cashflow/Share CAGR (avg)", percent(s.Growth.Metric(valuation.MetricCashflow))},
		{"Avg Growth Rate", percent(s.Growth.Avg)},
		{ColEPS10y, money(s.Intrinsic.EPS10y)},
		{ColFutureValue, money(s.Intrinsic.FutureValue)},
		{ColFairValue, money(s.Intrinsic.FairValue)},
		{MOSColumn(r.MOSFraction), money(s.Intrinsic.MOSPrice)},
		{ColTenCap, tenCap},
		{ColTenCapFairValue, tenCapFair},
	}
}

// cells renders a history row in Columns order.
func (h HistoryRow) cells() []string {
	row := []string{strconv.Itoa(h.Year), "", "", money(h.EPS), ""}
	if h.GrowthErr != nil {
		for range 9 {
			row = append(row, NotAvailable)
		}
		return row
	}

	tenCap, tenCapFair := NotAvailable, NotAvailable
	if h.TenCapOK {
		tenCap, tenCapFair = money(h.TenCap.Price), money(h.TenCap.FairValue())
	}
	price, date := NotAvailable, NotAvailable
	if h.Price.Found {
		price, date = money(h.Price.Price), h.Price.DateString()
	}
	return append(row,
		money(h.Intrinsic.EPS10y),
		money(h.Intrinsic.FutureValue),
		money(h.Intrinsic.FairValue),
		money(h.Intrinsic.MOSPrice),
		tenCap,
		tenCapFair,
		money(h.Growth.Avg),
		price,
		date,
	)
}

// pad widens row to n cells.
func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

// WriteCSV writes the metrics table, the summary and the history, separated
// by blank rows.
func (r *Report) WriteCSV(w io.Writer) error {
	cols := r.Columns()
	rows := [][]string{cols}
	for _, m := range r.Metrics {
		rows = append(rows, pad(m.cells(), len(cols)))
	}
	rows = append(rows, pad(nil, len(cols)))
	for _, kv := range r.SummaryRows() {
		rows = append(rows, pad([]string{kv[0], kv[1]}, len(cols)))
	}
	rows = append(rows, pad(nil, len(cols)))
	for _, h := range r.History {
		rows = append(rows, h.cells())
	}
	return writeAll(w, rows)
}

// WriteMetricsCSV writes only the metrics table.
func (r *Report) WriteMetricsCSV(w io.Writer) error {
	rows := [][]string{metricsColumns}
	for _, m := range r.Metrics {
		rows = append(rows, m.cells())
	}
	return writeAll(w, rows)
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// WriteFile writes the full report to dir, creating it if needed, and
// returns the file path.
func (r *Report) WriteFile(dir string) (string, error) {
	return r.writeFile(dir, r.WriteCSV)
}

// WriteMetricsOnly writes just the metrics table to the report file in dir.
func (r *Report) WriteMetricsOnly(dir string) (string, error) {
	return r.writeFile(dir, r.WriteMetricsCSV)
}

func (r *Report) writeFile(dir string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(r.Ticker))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report file: %w", err)
	}
	return path, nil
}
