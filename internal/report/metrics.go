package report

import (
	"fairvalue/internal/fetcher"
	"fairvalue/internal/valuation"
)

// YearMetrics is one row of the raw metrics table. Money amounts are in
// millions.
type YearMetrics struct {
	Year            int
	RevenueMio      float64
	FreeCashFlowMio float64
	EPS             float64
	// ROIC is a decimal ratio; HasROIC is false when the provider did not
	// report one for the year.
	ROIC    float64
	HasROIC bool
}

// collect builds the metrics table and the growth series for first..last.
// Years missing from a collection contribute zeros. Trailing years absent
// from all three collections are dropped from both results.
func collect(st fetcher.Statements, first, last int) ([]YearMetrics, valuation.MetricSeries) {
	rows := make([]YearMetrics, 0, last-first+1)
	series := make(valuation.MetricSeries, len(valuation.Metrics))
	lastWithData := -1

	for year := first; year <= last; year++ {
		inc, okInc := st.Income.ForYear(year)
		cf, okCF := st.CashFlow.ForYear(year)
		km, okKM := st.Metrics.ForYear(year)
		if okInc || okCF || okKM {
			lastWithData = year - first
		}

		row := YearMetrics{
			Year:            year,
			RevenueMio:      valuation.Round2(inc.Millions("revenue")),
			FreeCashFlowMio: valuation.Round2(cf.Millions("freeCashFlow")),
			EPS:             valuation.Round2(inc.Float("eps")),
		}
		if v, ok := km["roic"]; ok && v != nil {
			row.ROIC = km.Float("roic")
			row.HasROIC = true
		}
		rows = append(rows, row)

		series[valuation.MetricEPS] = append(series[valuation.MetricEPS], inc.Float("eps"))
		series[valuation.MetricBook] = append(series[valuation.MetricBook], km.Float("bookValuePerShare"))
		series[valuation.MetricRevenue] = append(series[valuation.MetricRevenue], km.Float("revenuePerShare"))
		series[valuation.MetricCashflow] = append(series[valuation.MetricCashflow], km.Float("operatingCashFlowPerShare"))
	}

	n := lastWithData + 1
	for m, values := range series {
		series[m] = values[:n]
	}
	return rows[:n], series
}
