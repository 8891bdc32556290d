package valuation

import (
	"log/slog"
	"math"
)

// IntrinsicValue is the outcome of a ten-year EPS projection. All money
// figures are rounded to two decimals.
type IntrinsicValue struct {
	EPSNow      float64
	GrowthRate  float64 // decimal
	EPS10y      float64
	FuturePE    float64
	FutureValue float64
	FairValue   float64
	MOSPrice    float64
	// Degenerate is set when EPS or growth was not positive; every figure
	// is then zero.
	Degenerate bool
}

// Projector turns current EPS and a growth rate into a discounted fair value
// and a margin-of-safety buy price.
type Projector struct {
	DiscountRate       float64
	MOSFraction        float64
	FuturePEMultiplier float64
	observer           Observer
}

// NewProjector builds a projector from p.
func NewProjector(p Policy, observer Observer) *Projector {
	return &Projector{
		DiscountRate:       p.DiscountRate,
		MOSFraction:        p.MOSFraction,
		FuturePEMultiplier: p.FuturePEMultiplier,
		observer:           orNop(observer),
	}
}

// Project projects epsNow ProjectionYears forward at growthRate, prices it at
// growthRate*FuturePEMultiplier and discounts it back.
func (p *Projector) Project(epsNow, growthRate float64) IntrinsicValue {
	obs := orNop(p.observer)
	if epsNow <= 0 || growthRate <= 0 || math.IsNaN(epsNow) || math.IsNaN(growthRate) {
		obs.Observe(Event{
			Name:    "intrinsic.degenerate",
			Level:   slog.LevelWarn,
			Message: "invalid EPS or growth rate, returning zero values",
			Fields:  map[string]any{"eps": epsNow, "growth_rate": growthRate},
		})
		return IntrinsicValue{Degenerate: true}
	}

	eps10y := epsNow * math.Pow(1+growthRate, ProjectionYears)
	futurePE := growthRate * p.FuturePEMultiplier
	futureValue := eps10y * futurePE
	fairValue := futureValue / math.Pow(1+p.DiscountRate, ProjectionYears)
	mosPrice := fairValue * (1 - p.MOSFraction)

	iv := IntrinsicValue{
		EPSNow:      Round2(epsNow),
		GrowthRate:  growthRate,
		EPS10y:      Round2(eps10y),
		FuturePE:    Round2(futurePE),
		FutureValue: Round2(futureValue),
		FairValue:   Round2(fairValue),
		MOSPrice:    Round2(mosPrice),
	}

	obs.Observe(Event{
		Name:    "intrinsic.result",
		Level:   slog.LevelInfo,
		Message: "intrinsic value",
		Fields: map[string]any{
			"growth_pct":   Round2(growthRate * 100),
			"eps_now":      iv.EPSNow,
			"eps_10y":      iv.EPS10y,
			"future_value": iv.FutureValue,
			"fair_value":   iv.FairValue,
			"mos_price":    iv.MOSPrice,
		},
	})
	return iv
}
