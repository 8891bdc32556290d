// Package report assembles the per-company valuation report: the raw metrics
// table, the margin-of-safety summary at the breach year and the valuation
// history around it.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fairvalue/internal/fetcher"
	"fairvalue/internal/valuation"
)

// ErrNoData means the provider returned no statements in the report window.
var ErrNoData = errors.New("no statement data")

// Window positions the report around the breach year.
type Window struct {
	// YearsBefore is how many years before the breach the data starts.
	YearsBefore int
	// YearsAfter is how many years after the breach the data ends.
	YearsAfter int
	// HistoryFrom and HistoryTo are the breach-relative offsets valued in
	// the history section, both inclusive.
	HistoryFrom int
	HistoryTo   int
}

// DefaultWindow starts six years before the breach, which is the earliest a
// five-year CAGR for the year before the breach is possible.
func DefaultWindow() Window {
	return Window{YearsBefore: 6, YearsAfter: 4, HistoryFrom: -1, HistoryTo: 3}
}

// Validate checks the window is usable.
func (w Window) Validate() error {
	switch {
	case w.YearsBefore < 0 || w.YearsAfter < 0:
		return fmt.Errorf("window years must not be negative (before %d, after %d)", w.YearsBefore, w.YearsAfter)
	case w.HistoryFrom > w.HistoryTo:
		return fmt.Errorf("history offsets out of order (%d > %d)", w.HistoryFrom, w.HistoryTo)
	}
	return nil
}

// Summary is the margin-of-safety valuation at the breach year.
type Summary struct {
	Growth    valuation.GrowthEstimate
	Intrinsic valuation.IntrinsicValue
	TenCap    valuation.TenCapResult
	TenCapOK  bool
}

// HistoryRow is the valuation of one year around the breach.
type HistoryRow struct {
	Year int
	EPS  float64

	Growth    valuation.GrowthEstimate
	GrowthErr error

	Intrinsic valuation.IntrinsicValue
	TenCap    valuation.TenCapResult
	TenCapOK  bool
	Price     valuation.PriceQuote

	Severity valuation.Severity
}

// Report is everything known about one company for one breach year.
type Report struct {
	Ticker      string
	BreachYear  int
	StartYear   int
	EndYear     int
	MOSFraction float64

	Metrics []YearMetrics
	Series  valuation.MetricSeries

	// Summary is nil when the breach year has too little history.
	Summary *Summary
	History []HistoryRow
}

// Builder produces reports from a data provider.
type Builder struct {
	provider  fetcher.Provider
	window    Window
	policy    valuation.Policy
	growth    *valuation.GrowthEstimator
	projector *valuation.Projector
	tenCap    *valuation.TenCapCalculator
	prices    *valuation.PriceLookup
	observer  valuation.Observer
}

// NewBuilder wires the valuation engine to provider. All diagnostics go to
// observer, which may be nil.
func NewBuilder(provider fetcher.Provider, policy valuation.Policy, window Window, observer valuation.Observer) *Builder {
	if observer == nil {
		observer = valuation.NopObserver{}
	}
	return &Builder{
		provider:  provider,
		window:    window,
		policy:    policy,
		growth:    valuation.NewGrowthEstimator(policy.GrowthWindowYears, observer),
		projector: valuation.NewProjector(policy, observer),
		tenCap:    valuation.NewTenCapCalculator(policy, observer),
		prices:    valuation.NewPriceLookup(provider, policy.PriceWindowDays, observer),
		observer:  observer,
	}
}

// Build fetches the statements of ticker and values it around breachYear.
//
// When the statements cannot be fetched, or hold nothing for the report
// window, the report is nil. When the breach
// year itself lacks growth history the returned report holds only the
// metrics table and the error wraps valuation.ErrInsufficientHistory.
func (b *Builder) Build(ctx context.Context, ticker string, breachYear int) (*Report, error) {
	rep, st, err := b.summarize(ctx, ticker, breachYear)
	if err != nil {
		return rep, err
	}

	eps := rep.Series[valuation.MetricEPS]
	for offset := b.window.HistoryFrom; offset <= b.window.HistoryTo; offset++ {
		idx := breachYear - rep.StartYear + offset
		if idx < 0 || idx >= len(eps) {
			continue
		}
		row, err := b.historyRow(ctx, ticker, rep, st, idx)
		if err != nil {
			return rep, err
		}
		rep.History = append(rep.History, row)
	}

	return rep, nil
}

// Summarize is Build without the fair value history: the metrics table and
// the breach-year summary, with no price lookups.
func (b *Builder) Summarize(ctx context.Context, ticker string, breachYear int) (*Report, error) {
	rep, _, err := b.summarize(ctx, ticker, breachYear)
	return rep, err
}

func (b *Builder) summarize(ctx context.Context, ticker string, breachYear int) (*Report, fetcher.Statements, error) {
	st, err := fetcher.FetchStatements(ctx, b.provider, ticker)
	if err != nil {
		return nil, st, fmt.Errorf("fetching statements for %s: %w", ticker, err)
	}

	rep := &Report{
		Ticker:      ticker,
		BreachYear:  breachYear,
		StartYear:   breachYear - b.window.YearsBefore,
		EndYear:     breachYear + b.window.YearsAfter,
		MOSFraction: b.policy.MOSFraction,
	}
	rep.Metrics, rep.Series = collect(st, rep.StartYear, rep.EndYear)
	if len(rep.Metrics) == 0 {
		return nil, st, fmt.Errorf("%w for %s in %d-%d", ErrNoData, ticker, rep.StartYear, rep.EndYear)
	}

	eps := rep.Series[valuation.MetricEPS]
	if need := breachYear - rep.StartYear + b.window.YearsAfter; len(eps) < need {
		b.observer.Observe(valuation.Event{
			Name:    "report.eps_short",
			Level:   slog.LevelWarn,
			Message: "EPS history shorter than the report window, results may be incomplete",
			Fields:  map[string]any{"ticker": ticker, "have": len(eps), "need": need},
		})
	}

	est, err := b.growth.Estimate(rep.Series, breachYear, rep.StartYear)
	if err != nil {
		return rep, st, fmt.Errorf("valuing %s at breach year %d: %w", ticker, breachYear, err)
	}

	sum := &Summary{Growth: est}
	sum.Intrinsic = b.projector.Project(epsAt(eps, breachYear-rep.StartYear), est.AvgRate())
	sum.TenCap, sum.TenCapOK = b.tenCap.Compute(breachYear, st.Income, st.CashFlow, st.Metrics)
	rep.Summary = sum
	return rep, st, nil
}

func (b *Builder) historyRow(ctx context.Context, ticker string, rep *Report, st fetcher.Statements, idx int) (HistoryRow, error) {
	year := rep.StartYear + idx
	row := HistoryRow{Year: year, EPS: rep.Series[valuation.MetricEPS][idx]}

	row.Growth, row.GrowthErr = b.growth.Estimate(rep.Series, year, rep.StartYear)
	if row.GrowthErr != nil {
		row.Severity = valuation.SeverityFatal
		b.observer.Observe(valuation.Event{
			Name:    "report.growth_failed",
			Level:   slog.LevelWarn,
			Message: "growth calculation failed for year",
			Fields:  map[string]any{"ticker": ticker, "year": year, "error": row.GrowthErr.Error()},
		})
		return row, nil
	}

	base := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	quote, err := b.prices.FindPrice(ctx, ticker, base)
	if err != nil {
		return row, fmt.Errorf("looking up %s price for %d: %w", ticker, year, err)
	}
	row.Price = quote

	row.TenCap, row.TenCapOK = b.tenCap.Compute(year, st.Income, st.CashFlow, st.Metrics)
	row.Intrinsic = b.projector.Project(row.EPS, row.Growth.AvgRate())

	if !row.Price.Found || !row.TenCapOK || row.Intrinsic.Degenerate {
		row.Severity = valuation.Worst(row.Severity, valuation.SeverityDegraded)
	}

	b.observer.Observe(valuation.Event{
		Name:    "report.history_row",
		Level:   slog.LevelInfo,
		Message: "fair value history",
		Fields: map[string]any{
			"ticker":     ticker,
			"year":       year,
			"growth_pct": row.Growth.Avg,
			"mos_price":  row.Intrinsic.MOSPrice,
			"tencap":     row.TenCap.Price,
			"price":      row.Price.Price,
			"severity":   row.Severity.String(),
		},
	})
	return row, nil
}

// epsAt returns eps[i], falling back to the latest value when the series
// ends before i.
func epsAt(eps []float64, i int) float64 {
	switch {
	case i >= 0 && i < len(eps):
		return eps[i]
	case len(eps) > 0:
		return eps[len(eps)-1]
	default:
		return 0
	}
}

// IsPartial reports whether err left only the metrics table usable.
func IsPartial(err error) bool {
	return errors.Is(err, valuation.ErrInsufficientHistory)
}
