// Package valuation is the valuation engine: growth estimation from historical
// per-share metrics, intrinsic value projection with a margin of safety,
// owner-earnings based ten-cap pricing and the bounded historical price search.
//
// Every function here is deterministic given its inputs. Diagnostics are
// emitted as Events to an injected Observer; nothing in this package touches
// global logging state.
package valuation

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultDiscountRate is the annual rate used to discount the projected
	// future value back to today.
	DefaultDiscountRate = 0.15

	// DefaultMOSFraction is the margin-of-safety haircut applied to fair value.
	DefaultMOSFraction = 0.50

	// DefaultFuturePEMultiplier turns a growth rate into a future P/E
	// (growth 0.10 -> P/E 20). A heuristic, not a market multiple.
	DefaultFuturePEMultiplier = 200

	// DefaultCapRate is the owner-earnings yield the ten-cap price implies.
	DefaultCapRate = 0.10

	// DefaultMaintenanceCapexWeight is the share of capital expenditure
	// treated as sustaining cost in owner earnings.
	DefaultMaintenanceCapexWeight = 0.5

	// DefaultPriceWindowDays is how many calendar days, the base date
	// included, the price search walks backwards.
	DefaultPriceWindowDays = 14

	// DefaultGrowthWindowYears is the span of the CAGR window. The window
	// holds DefaultGrowthWindowYears+1 yearly values.
	DefaultGrowthWindowYears = 5

	// ProjectionYears is the EPS projection and discounting horizon.
	ProjectionYears = 10
)

// Policy gathers the tunable valuation constants.
type Policy struct {
	DiscountRate           float64
	MOSFraction            float64
	FuturePEMultiplier     float64
	CapRate                float64
	MaintenanceCapexWeight float64
	PriceWindowDays        int
	GrowthWindowYears      int
}

// DefaultPolicy returns the policy the valuation model was designed with.
func DefaultPolicy() Policy {
	return Policy{
		DiscountRate:           DefaultDiscountRate,
		MOSFraction:            DefaultMOSFraction,
		FuturePEMultiplier:     DefaultFuturePEMultiplier,
		CapRate:                DefaultCapRate,
		MaintenanceCapexWeight: DefaultMaintenanceCapexWeight,
		PriceWindowDays:        DefaultPriceWindowDays,
		GrowthWindowYears:      DefaultGrowthWindowYears,
	}
}

// Validate reports every out-of-range constant in one error.
func (p Policy) Validate() error {
	var problems []string
	if p.DiscountRate <= -1 {
		problems = append(problems, fmt.Sprintf("discount rate %v must be greater than -1", p.DiscountRate))
	}
	if p.MOSFraction < 0 || p.MOSFraction >= 1 {
		problems = append(problems, fmt.Sprintf("margin of safety %v must be in [0, 1)", p.MOSFraction))
	}
	if p.FuturePEMultiplier <= 0 {
		problems = append(problems, fmt.Sprintf("future P/E multiplier %v must be positive", p.FuturePEMultiplier))
	}
	if p.CapRate <= 0 {
		problems = append(problems, fmt.Sprintf("cap rate %v must be positive", p.CapRate))
	}
	if p.MaintenanceCapexWeight < 0 || p.MaintenanceCapexWeight > 1 {
		problems = append(problems, fmt.Sprintf("maintenance capex weight %v must be in [0, 1]", p.MaintenanceCapexWeight))
	}
	if p.PriceWindowDays < 1 {
		problems = append(problems, fmt.Sprintf("price window %d must be at least one day", p.PriceWindowDays))
	}
	if p.GrowthWindowYears < 1 {
		problems = append(problems, fmt.Sprintf("growth window %d must be at least one year", p.GrowthWindowYears))
	}

	if len(problems) > 0 {
		return errors.New("invalid valuation policy: " + strings.Join(problems, "; "))
	}
	return nil
}
