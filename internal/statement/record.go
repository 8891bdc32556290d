// Package statement holds the raw per-year records returned by the financial
// data provider (income statement, cash flow statement and key metrics).
//
// Records are kept as loosely-typed maps because the provider's schema drifts
// between tickers and periods; callers read fields through Float, which never
// fails and reads anything it cannot interpret as 0.
package statement

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Million converts provider-native currency units to millions.
const Million = 1_000_000

// yearFields lists the keys that carry a record's calendar year, most
// preferred first.
var yearFields = []string{"calendarYear", "fiscalYear"}

// Record is one statement entry for one ticker and one period.
type Record map[string]any

// Float returns the numeric value of key. Missing keys, nulls, non-numeric
// strings and non-finite values all read as 0.
func (r Record) Float(key string) float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return 0
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Millions returns Float(key) scaled to millions.
func (r Record) Millions(key string) float64 {
	return r.Float(key) / Million
}

// CalendarYear returns the record's year as a string, or "" if the record
// carries no recognisable year field.
func (r Record) CalendarYear() string {
	for _, key := range yearFields {
		switch v := r[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

// KeysContaining returns the sorted keys whose lower-cased name contains
// substr. Used to report which alternative fields a provider did send.
func (r Record) KeysContaining(substr string) []string {
	substr = strings.ToLower(substr)
	var keys []string
	for k := range r {
		if strings.Contains(strings.ToLower(k), substr) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Collection is every record of one statement type for one ticker.
type Collection []Record

// ForYear returns the first record whose calendar year equals year.
func (c Collection) ForYear(year int) (Record, bool) {
	want := strconv.Itoa(year)
	for _, rec := range c {
		if rec.CalendarYear() == want {
			return rec, true
		}
	}
	return nil, false
}

// Kind names a statement type.
type Kind string

const (
	KindIncome     Kind = "income"
	KindCashFlow   Kind = "cashflow"
	KindKeyMetrics Kind = "metrics"
)
