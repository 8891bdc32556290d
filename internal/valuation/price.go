package valuation

import (
	"context"
	"log/slog"
	"time"
)

// DateLayout is the provider's calendar date format.
const DateLayout = "2006-01-02"

// PriceSource returns the recorded closing price of ticker on date. ok is
// false when the provider has no price for that date.
type PriceSource interface {
	ClosePrice(ctx context.Context, ticker string, date time.Time) (price float64, ok bool, err error)
}

// PriceQuote is the result of a bounded price search.
type PriceQuote struct {
	Price float64
	Date  time.Time
	Found bool
}

// DateString returns the date actually used, or "" when nothing was found.
func (q PriceQuote) DateString() string {
	if !q.Found {
		return ""
	}
	return q.Date.Format(DateLayout)
}

// PriceLookup finds the most recent close on or before a base date.
type PriceLookup struct {
	Source     PriceSource
	WindowDays int
	observer   Observer
}

// NewPriceLookup searches up to windowDays dates, base date included.
func NewPriceLookup(source PriceSource, windowDays int, observer Observer) *PriceLookup {
	if windowDays < 1 {
		windowDays = DefaultPriceWindowDays
	}
	return &PriceLookup{Source: source, WindowDays: windowDays, observer: orNop(observer)}
}

// FindPrice walks back from base one calendar day at a time and returns the
// first date with a positive close. Exhausting the window is not an error:
// the quote comes back with Found false. A source error for one date counts
// as a miss; only cancellation of ctx stops the search early.
func (l *PriceLookup) FindPrice(ctx context.Context, ticker string, base time.Time) (PriceQuote, error) {
	obs := orNop(l.observer)
	base = time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)

	for i := 0; i < l.WindowDays; i++ {
		if err := ctx.Err(); err != nil {
			return PriceQuote{}, err
		}

		date := base.AddDate(0, 0, -i)
		price, ok, err := l.Source.ClosePrice(ctx, ticker, date)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return PriceQuote{}, ctxErr
			}
			obs.Observe(Event{
				Name:    "price.source_error",
				Level:   slog.LevelError,
				Message: "error fetching price",
				Fields:  map[string]any{"ticker": ticker, "date": date.Format(DateLayout), "error": err.Error()},
			})
			continue
		}

		obs.Observe(Event{
			Name:    "price.try",
			Level:   slog.LevelDebug,
			Message: "trying price date",
			Fields:  map[string]any{"ticker": ticker, "date": date.Format(DateLayout), "found": ok, "price": price},
		})
		if ok && price > 0 {
			return PriceQuote{Price: price, Date: date, Found: true}, nil
		}
	}

	obs.Observe(Event{
		Name:    "price.not_found",
		Level:   slog.LevelWarn,
		Message: "no valid stock price found within window",
		Fields:  map[string]any{"ticker": ticker, "base_date": base.Format(DateLayout), "window_days": l.WindowDays},
	})
	return PriceQuote{}, nil
}
