package fetcher

import (
	"context"
	"sync"

	"fairvalue/internal/statement"
)

var _ Provider = (*CachingProvider)(nil)

type cacheKey struct {
	kind   statement.Kind
	ticker string
}

// CachingProvider memoises statement collections per ticker so that the
// per-year steps of a report do not re-fetch them. Prices are not cached:
// each lookup asks for a distinct date. Failed fetches are not cached
type CachingProvider struct {
	Provider

	mu    sync.Mutex
	cache map[cacheKey]statement.Collection
}

// NewCachingProvider wraps p with a per-ticker statement cache
func NewCachingProvider(p Provider) *CachingProvider {
	return &CachingProvider{
		Provider: p,
		cache:    make(map[cacheKey]statement.Collection),
	}
}

func (c *CachingProvider) cached(ctx context.Context, kind statement.Kind, ticker string,
	fetch func(context.Context, string) (statement.Collection, error)) (statement.Collection, error) {
	key := cacheKey{kind: kind, ticker: ticker}

	c.mu.Lock()
	if coll, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return coll, nil
	}
	c.mu.Unlock()

	coll, err := fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = coll
	c.mu.Unlock()
	return coll, nil
}

// IncomeStatements implements StatementSource
func (c *CachingProvider) IncomeStatements(ctx context.Context, ticker string) (statement.Collection, error) {
	return c.cached(ctx, statement.KindIncome, ticker, c.Provider.IncomeStatements)
}

// CashFlowStatements implements StatementSource
func (c *CachingProvider) CashFlowStatements(ctx context.Context, ticker string) (statement.Collection, error) {
	return c.cached(ctx, statement.KindCashFlow, ticker, c.Provider.CashFlowStatements)
}

// KeyMetrics implements StatementSource
func (c *CachingProvider) KeyMetrics(ctx context.Context, ticker string) (statement.Collection, error) {
	return c.cached(ctx, statement.KindKeyMetrics, ticker, c.Provider.KeyMetrics)
}
