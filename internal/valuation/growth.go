package valuation

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
)

// Metric names one per-share series used for growth estimation.
type Metric string

const (
	MetricEPS      Metric = "eps"
	MetricBook     Metric = "book"
	MetricRevenue  Metric = "revenue"
	MetricCashflow Metric = "cashflow"
)

// Metrics is the canonical metric order. Every estimate covers exactly these.
var Metrics = []Metric{MetricBook, MetricEPS, MetricRevenue, MetricCashflow}

// MetricSeries maps a metric to its yearly values. Index i of every series is
// the year DataStartYear+i; a series may end early but is never reordered.
type MetricSeries map[Metric][]float64

// ErrInsufficientHistory is matched by InsufficientHistoryError.
var ErrInsufficientHistory = errors.New("insufficient history")

// InsufficientHistoryError reports a target year that has too few preceding
// years of data to form a growth window. It is fatal for that year.
type InsufficientHistoryError struct {
	TargetYear    int
	DataStartYear int
	WindowYears   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: target year %d needs data from %d, series starts %d",
		e.TargetYear, e.TargetYear-e.WindowYears, e.DataStartYear)
}

// Is makes errors.Is(err, ErrInsufficientHistory) succeed.
func (e *InsufficientHistoryError) Is(target error) bool {
	return target == ErrInsufficientHistory
}

// CAGR returns the compound annual growth rate between start and end over
// years as a decimal. Any non-positive or non-finite input yields 0.
func CAGR(start, end, years float64) float64 {
	for _, v := range []float64{start, end, years} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return 0
		}
	}
	return math.Pow(end/start, 1/years) - 1
}

// GrowthEstimate is the per-metric and average CAGR for one target year,
// expressed as percentages rounded to two decimals.
type GrowthEstimate struct {
	TargetYear    int
	DataStartYear int
	// Avg is the rounded percentage of AvgDecimal.
	Avg float64
	// AvgDecimal is the unrounded mean of the per-metric decimal CAGRs.
	AvgDecimal float64

	metrics map[Metric]float64
}

// Metric returns the rounded CAGR percentage for m, 0 if m was not computable.
func (g GrowthEstimate) Metric(m Metric) float64 {
	return g.metrics[m]
}

// Metrics returns a copy of every per-metric percentage.
func (g GrowthEstimate) Metrics() map[Metric]float64 {
	return maps.Clone(g.metrics)
}

// AvgRate returns Avg as a decimal rate, the form the projector expects.
func (g GrowthEstimate) AvgRate() float64 {
	return g.Avg / 100
}

// Negative reports whether the average growth is below zero. A valid outcome,
// but one worth surfacing.
func (g GrowthEstimate) Negative() bool {
	return g.AvgDecimal < 0
}

// GrowthEstimator computes multi-metric CAGRs over a fixed window ending at
// the target year.
type GrowthEstimator struct {
	WindowYears int
	observer    Observer
}

// NewGrowthEstimator returns an estimator using windowYears-long windows.
func NewGrowthEstimator(windowYears int, observer Observer) *GrowthEstimator {
	if windowYears < 1 {
		windowYears = DefaultGrowthWindowYears
	}
	return &GrowthEstimator{WindowYears: windowYears, observer: orNop(observer)}
}

// Estimate computes the growth estimate for targetYear from series whose
// first entry is dataStartYear.
//
// A metric with too short a series, or with a non-positive value at either
// end of its window, contributes 0 and still counts towards the average.
// The only error is *InsufficientHistoryError.
func (e *GrowthEstimator) Estimate(series MetricSeries, targetYear, dataStartYear int) (GrowthEstimate, error) {
	window := e.WindowYears
	startIndex := targetYear - dataStartYear - window
	if startIndex < 0 {
		return GrowthEstimate{}, &InsufficientHistoryError{
			TargetYear:    targetYear,
			DataStartYear: dataStartYear,
			WindowYears:   window,
		}
	}

	est := GrowthEstimate{
		TargetYear:    targetYear,
		DataStartYear: dataStartYear,
		metrics:       make(map[Metric]float64, len(Metrics)),
	}

	var sum float64
	for _, m := range Metrics {
		values := series[m]
		if len(values) < startIndex+window+1 {
			e.observer.Observe(Event{
				Name:    "growth.metric_short",
				Level:   slog.LevelWarn,
				Message: "not enough data for metric, growth set to 0",
				Fields:  map[string]any{"metric": string(m), "have": len(values), "need": startIndex + window + 1},
			})
			est.metrics[m] = 0
			continue
		}

		start, end := values[startIndex], values[startIndex+window]
		if start <= 0 || end <= 0 {
			e.observer.Observe(Event{
				Name:    "growth.metric_invalid",
				Level:   slog.LevelInfo,
				Message: "non-positive window endpoint, growth set to 0",
				Fields:  map[string]any{"metric": string(m), "start": start, "end": end},
			})
			est.metrics[m] = 0
			continue
		}

		cagr := CAGR(start, end, float64(window))
		sum += cagr
		est.metrics[m] = Round2(cagr * 100)
		e.observer.Observe(Event{
			Name:    "growth.metric",
			Level:   slog.LevelInfo,
			Message: "metric CAGR computed",
			Fields:  map[string]any{"metric": string(m), "years": window, "cagr_pct": est.metrics[m]},
		})
	}

	est.AvgDecimal = sum / float64(len(Metrics))
	est.Avg = Round2(est.AvgDecimal * 100)

	e.observer.Observe(Event{
		Name:    "growth.summary",
		Level:   slog.LevelInfo,
		Message: "growth estimate",
		Fields: map[string]any{
			"target_year": targetYear,
			"book":        est.metrics[MetricBook],
			"eps":         est.metrics[MetricEPS],
			"revenue":     est.metrics[MetricRevenue],
			"cashflow":    est.metrics[MetricCashflow],
			"avg":         est.Avg,
		},
	})
	if est.Negative() {
		e.observer.Observe(Event{
			Name:    "growth.negative_average",
			Level:   slog.LevelWarn,
			Message: "company shows negative average growth",
			Fields:  map[string]any{"target_year": targetYear, "avg": est.Avg},
		})
	}

	return est, nil
}
