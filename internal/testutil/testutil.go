package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fairvalue/internal/statement"
)

// MockProvider is an in-memory data provider for tests. It satisfies
// fetcher.Provider. Errors set in Err are returned for every statement
// call of that ticker
type MockProvider struct {
	Income   map[string]statement.Collection
	CashFlow map[string]statement.Collection
	Metrics  map[string]statement.Collection
	// Prices maps ticker -> "YYYY-MM-DD" -> close
	Prices map[string]map[string]float64
	Err    map[string]error

	mu    sync.Mutex
	calls map[string]int
}

// NewMockProvider creates an empty MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Income:   make(map[string]statement.Collection),
		CashFlow: make(map[string]statement.Collection),
		Metrics:  make(map[string]statement.Collection),
		Prices:   make(map[string]map[string]float64),
		Err:      make(map[string]error),
	}
}

func (m *MockProvider) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[call]++
}

// Calls returns how often method was called for ticker
func (m *MockProvider) Calls(method, ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method+":"+ticker]
}

func (m *MockProvider) statements(ctx context.Context, method, ticker string, src map[string]statement.Collection) (statement.Collection, error) {
	m.record(method + ":" + ticker)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Err[ticker]; err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, ticker, err)
	}
	return src[ticker], nil
}

// IncomeStatements implements fetcher.StatementSource
func (m *MockProvider) IncomeStatements(ctx context.Context, ticker string) (statement.Collection, error) {
	return m.statements(ctx, "income", ticker, m.Income)
}

// CashFlowStatements implements fetcher.StatementSource
func (m *MockProvider) CashFlowStatements(ctx context.Context, ticker string) (statement.Collection, error) {
	return m.statements(ctx, "cashflow", ticker, m.CashFlow)
}

// KeyMetrics implements fetcher.StatementSource
func (m *MockProvider) KeyMetrics(ctx context.Context, ticker string) (statement.Collection, error) {
	return m.statements(ctx, "metrics", ticker, m.Metrics)
}

// ClosePrice implements valuation.PriceSource
func (m *MockProvider) ClosePrice(ctx context.Context, ticker string, date time.Time) (float64, bool, error) {
	m.record("price:" + ticker)
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	p, ok := m.Prices[ticker][date.Format("2006-01-02")]
	return p, ok, nil
}

// SetPrice records a close for ticker on date ("YYYY-MM-DD")
func (m *MockProvider) SetPrice(ticker, date string, price float64) {
	if m.Prices[ticker] == nil {
		m.Prices[ticker] = make(map[string]float64)
	}
	m.Prices[ticker][date] = price
}

// Company describes one synthetic year of provider data, in raw units
type Company struct {
	Year               int
	EPS                float64
	BookPerShare       float64
	RevenuePerShare    float64
	CashFlowPerShare   float64
	Revenue            float64
	FreeCashFlow       float64
	ROIC               float64
	IncomeBeforeTax    float64
	Depreciation       float64
	ReceivablesChange  float64
	PayablesChange     float64
	CapitalExpenditure float64
	WeightedAvgShares  float64
}

// AddYear appends one year of statements for ticker
func (m *MockProvider) AddYear(ticker string, c Company) {
	year := fmt.Sprintf("%d", c.Year)
	m.Income[ticker] = append(m.Income[ticker], statement.Record{
		"calendarYear":          year,
		"revenue":               c.Revenue,
		"eps":                   c.EPS,
		"incomeBeforeTax":       c.IncomeBeforeTax,
		"weightedAverageShsOut": c.WeightedAvgShares,
	})
	m.CashFlow[ticker] = append(m.CashFlow[ticker], statement.Record{
		"calendarYear":                year,
		"freeCashFlow":                c.FreeCashFlow,
		"depreciationAndAmortization": c.Depreciation,
		"accountsReceivables":         c.ReceivablesChange,
		"accountsPayables":            c.PayablesChange,
		"capitalExpenditure":          c.CapitalExpenditure,
	})
	m.Metrics[ticker] = append(m.Metrics[ticker], statement.Record{
		"calendarYear":              year,
		"bookValuePerShare":         c.BookPerShare,
		"revenuePerShare":           c.RevenuePerShare,
		"operatingCashFlowPerShare": c.CashFlowPerShare,
		"roic":                      c.ROIC,
		"weightedAverageShsOut":     c.WeightedAvgShares,
	})
}

// SteadyCompany returns years from..to of a company whose per-share figures
// grow 10% a year from a base of 1.0 and whose ten-cap inputs are constant
func SteadyCompany(from, to int) []Company {
	var out []Company
	v := 1.0
	for y := from; y <= to; y++ {
		out = append(out, Company{
			Year:               y,
			EPS:                v,
			BookPerShare:       v * 10,
			RevenuePerShare:    v * 5,
			CashFlowPerShare:   v * 2,
			Revenue:            500e6 * v,
			FreeCashFlow:       80e6 * v,
			ROIC:               0.12,
			IncomeBeforeTax:    100e6,
			Depreciation:       20e6,
			ReceivablesChange:  -8e6,
			PayablesChange:     3e6,
			CapitalExpenditure: -10e6,
			WeightedAvgShares:  50e6,
		})
		v *= 1.1
	}
	return out
}
