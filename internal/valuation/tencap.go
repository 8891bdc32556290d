package valuation

import (
	"log/slog"
	"math"

	"fairvalue/internal/statement"
)

// FieldRef names one field of one statement type.
type FieldRef struct {
	Kind statement.Kind
	Key  string
}

// DefaultDepreciationFields are tried in order; providers report
// depreciation under different names depending on ticker and period.
var DefaultDepreciationFields = []FieldRef{
	{statement.KindCashFlow, "depreciationAndAmortization"},
	{statement.KindCashFlow, "depreciation"},
	{statement.KindCashFlow, "depreciationAmortizationDepletion"},
	{statement.KindCashFlow, "depreciationDepletionAndAmortization"},
}

// DefaultSharesFields are tried in order for the share count.
var DefaultSharesFields = []FieldRef{
	{statement.KindKeyMetrics, "weightedAverageShsOut"},
	{statement.KindKeyMetrics, "weightedAverageShsOutDil"},
	{statement.KindIncome, "weightedAverageShsOut"},
	{statement.KindIncome, "weightedAverageShsOutDil"},
}

// YearRecords is one ticker-year across the three statement types.
type YearRecords struct {
	Income   statement.Record
	CashFlow statement.Record
	Metrics  statement.Record
}

func (y YearRecords) record(k statement.Kind) statement.Record {
	switch k {
	case statement.KindIncome:
		return y.Income
	case statement.KindCashFlow:
		return y.CashFlow
	case statement.KindKeyMetrics:
		return y.Metrics
	}
	return nil
}

// firstNonZero returns the first non-zero field value among refs.
func (y YearRecords) firstNonZero(refs []FieldRef) (float64, FieldRef, bool) {
	for _, ref := range refs {
		if v := y.record(ref.Kind).Float(ref.Key); v != 0 {
			return v, ref, true
		}
	}
	return 0, FieldRef{}, false
}

// OwnerEarningsInput holds owner-earnings components, all in millions.
// WorkingCapitalChange is sign-correct as reported in the cash flow
// statement: growing receivables are negative, growing payables positive.
type OwnerEarningsInput struct {
	ProfitBeforeTax      float64
	Depreciation         float64
	WorkingCapitalChange float64
	MaintenanceCapex     float64
}

// OwnerEarnings returns profit before tax plus depreciation plus the working
// capital change, minus capexWeight of maintenance capex.
func OwnerEarnings(in OwnerEarningsInput, capexWeight float64) float64 {
	return in.ProfitBeforeTax +
		in.Depreciation +
		in.WorkingCapitalChange -
		math.Abs(in.MaintenanceCapex)*capexWeight
}

// TenCapResult is a ten-cap valuation for one ticker-year. Money amounts are
// in millions except EPS and Price, which are per share.
type TenCapResult struct {
	Year                     int
	ProfitBeforeTax          float64
	Depreciation             float64
	AccountsReceivableChange float64
	AccountsPayableChange    float64
	WorkingCapitalChange     float64
	MaintenanceCapex         float64
	AdjustedMaintenanceCapex float64
	OwnerEarnings            float64
	SharesOutstanding        float64
	EPS                      float64
	// Price is the buy price implying a CapRate owner-earnings yield.
	Price float64

	DepreciationField FieldRef
	SharesField       FieldRef
}

// FairValue is twice the ten-cap buy price.
func (r TenCapResult) FairValue() float64 {
	return r.Price * 2
}

// TenCapCalculator prices a ticker-year at a fixed owner-earnings yield.
type TenCapCalculator struct {
	CapRate                float64
	MaintenanceCapexWeight float64
	DepreciationFields     []FieldRef
	SharesFields           []FieldRef
	observer               Observer
}

// NewTenCapCalculator builds a calculator from p with the default field
// tables.
func NewTenCapCalculator(p Policy, observer Observer) *TenCapCalculator {
	return &TenCapCalculator{
		CapRate:                p.CapRate,
		MaintenanceCapexWeight: p.MaintenanceCapexWeight,
		DepreciationFields:     DefaultDepreciationFields,
		SharesFields:           DefaultSharesFields,
		observer:               orNop(observer),
	}
}

// Compute locates year in each collection and prices it. It reports false
// when any of the three records is missing or no positive share count exists.
func (c *TenCapCalculator) Compute(year int, income, cashflow, metrics statement.Collection) (TenCapResult, bool) {
	obs := orNop(c.observer)

	inc, okInc := income.ForYear(year)
	cf, okCF := cashflow.ForYear(year)
	km, okKM := metrics.ForYear(year)
	if !okInc || !okCF || !okKM {
		obs.Observe(Event{
			Name:    "tencap.missing_year",
			Level:   slog.LevelError,
			Message: "could not find complete data for year",
			Fields: map[string]any{
				"year":     year,
				"income":   okInc,
				"cashflow": okCF,
				"metrics":  okKM,
			},
		})
		return TenCapResult{}, false
	}

	return c.ComputeRecords(year, YearRecords{Income: inc, CashFlow: cf, Metrics: km})
}

// ComputeRecords prices already-located records for year.
func (c *TenCapCalculator) ComputeRecords(year int, recs YearRecords) (TenCapResult, bool) {
	obs := orNop(c.observer)

	res := TenCapResult{Year: year}
	res.ProfitBeforeTax = recs.Income.Millions("incomeBeforeTax")

	if dep, ref, ok := recs.firstNonZero(c.DepreciationFields); ok {
		res.Depreciation = dep / statement.Million
		res.DepreciationField = ref
	} else {
		obs.Observe(Event{
			Name:    "tencap.depreciation_missing",
			Level:   slog.LevelWarn,
			Message: "could not find any depreciation values",
			Fields:  map[string]any{"year": year, "available": recs.CashFlow.KeysContaining("depreciation")},
		})
	}

	res.AccountsReceivableChange = recs.CashFlow.Millions("accountsReceivables")
	res.AccountsPayableChange = recs.CashFlow.Millions("accountsPayables")
	res.WorkingCapitalChange = res.AccountsReceivableChange + res.AccountsPayableChange
	if res.WorkingCapitalChange == 0 {
		obs.Observe(Event{
			Name:    "tencap.working_capital_zero",
			Level:   slog.LevelWarn,
			Message: "working capital change is 0, data might be missing",
			Fields:  map[string]any{"year": year},
		})
	}

	res.MaintenanceCapex = math.Abs(recs.CashFlow.Millions("capitalExpenditure"))
	res.AdjustedMaintenanceCapex = res.MaintenanceCapex * c.MaintenanceCapexWeight
	if res.AdjustedMaintenanceCapex == 0 {
		obs.Observe(Event{
			Name:    "tencap.capex_zero",
			Level:   slog.LevelWarn,
			Message: "maintenance capex is 0, data might be missing",
			Fields:  map[string]any{"year": year},
		})
	}

	res.OwnerEarnings = OwnerEarnings(OwnerEarningsInput{
		ProfitBeforeTax:      res.ProfitBeforeTax,
		Depreciation:         res.Depreciation,
		WorkingCapitalChange: res.WorkingCapitalChange,
		MaintenanceCapex:     res.MaintenanceCapex,
	}, c.MaintenanceCapexWeight)

	shares, ref, _ := recs.firstNonZero(c.SharesFields)
	res.SharesOutstanding = shares / statement.Million
	res.SharesField = ref
	if res.SharesOutstanding <= 0 {
		obs.Observe(Event{
			Name:    "tencap.no_shares",
			Level:   slog.LevelError,
			Message: "no valid shares outstanding found",
			Fields:  map[string]any{"year": year, "shares_mio": res.SharesOutstanding},
		})
		return TenCapResult{}, false
	}

	res.EPS = res.OwnerEarnings / res.SharesOutstanding
	res.Price = res.EPS / c.CapRate

	obs.Observe(Event{
		Name:    "tencap.result",
		Level:   slog.LevelInfo,
		Message: "ten cap analysis",
		Fields: map[string]any{
			"year":              year,
			"income_before_tax": res.ProfitBeforeTax,
			"depreciation":      res.Depreciation,
			"delta_receivables": res.AccountsReceivableChange,
			"delta_payables":    res.AccountsPayableChange,
			"delta_working_cap": res.WorkingCapitalChange,
			"adjusted_capex":    res.AdjustedMaintenanceCapex,
			"owner_earnings":    res.OwnerEarnings,
			"shares_mio":        res.SharesOutstanding,
			"owner_eps":         res.EPS,
			"ten_cap_buy_price": res.Price,
		},
	})
	return res, true
}
