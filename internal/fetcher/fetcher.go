package fetcher

import (
	"context"

	"fairvalue/internal/statement"
	"fairvalue/internal/valuation"
)

// StatementSource retrieves every available record of one statement type for
// a ticker. Records are unordered; callers locate years with ForYear
type StatementSource interface {
	IncomeStatements(ctx context.Context, ticker string) (statement.Collection, error)
	CashFlowStatements(ctx context.Context, ticker string) (statement.Collection, error)
	KeyMetrics(ctx context.Context, ticker string) (statement.Collection, error)
}

// Provider is the complete financial data provider contract: statements plus
// historical closing prices
type Provider interface {
	StatementSource
	valuation.PriceSource
}

// Statements is the three collections fetched for one ticker
type Statements struct {
	Income   statement.Collection
	CashFlow statement.Collection
	Metrics  statement.Collection
}

// FetchStatements fetches all three collections, failing on the first error
func FetchStatements(ctx context.Context, src StatementSource, ticker string) (Statements, error) {
	var (
		s   Statements
		err error
	)
	if s.Income, err = src.IncomeStatements(ctx, ticker); err != nil {
		return Statements{}, err
	}
	if s.CashFlow, err = src.CashFlowStatements(ctx, ticker); err != nil {
		return Statements{}, err
	}
	if s.Metrics, err = src.KeyMetrics(ctx, ticker); err != nil {
		return Statements{}, err
	}
	return s, nil
}
