package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapPriceSource struct {
	prices map[string]float64
	errs   map[string]error
	calls  []string
}

func (m *mapPriceSource) ClosePrice(_ context.Context, _ string, date time.Time) (float64, bool, error) {
	key := date.Format(DateLayout)
	m.calls = append(m.calls, key)
	if err, ok := m.errs[key]; ok {
		return 0, false, err
	}
	p, ok := m.prices[key]
	return p, ok, nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestFindPrice_ExactDate(t *testing.T) {
	src := &mapPriceSource{prices: map[string]float64{"2019-12-31": 101.5}}
	lookup := NewPriceLookup(src, DefaultPriceWindowDays, nil)

	got, err := lookup.FindPrice(context.Background(), "COF", mustDate(t, "2019-12-31"))
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, 101.5, got.Price)
	assert.Equal(t, "2019-12-31", got.DateString())
	assert.Len(t, src.calls, 1)
}

func TestFindPrice_TenDaysBack(t *testing.T) {
	src := &mapPriceSource{prices: map[string]float64{
		"2019-12-21": 88.0,
		"2019-12-15": 70.0,
	}}
	lookup := NewPriceLookup(src, DefaultPriceWindowDays, nil)

	got, err := lookup.FindPrice(context.Background(), "COF", mustDate(t, "2019-12-31"))
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, 88.0, got.Price)
	assert.Equal(t, "2019-12-21", got.DateString())
	assert.Len(t, src.calls, 11)
}

func TestFindPrice_NotFoundWithinWindow(t *testing.T) {
	// 14 days back from 12-31 is 12-18; 12-17 is outside the window
	src := &mapPriceSource{prices: map[string]float64{"2019-12-17": 50}}
	obs := &recordingObserver{}
	lookup := NewPriceLookup(src, DefaultPriceWindowDays, obs)

	got, err := lookup.FindPrice(context.Background(), "COF", mustDate(t, "2019-12-31"))
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, PriceQuote{}, got)
	assert.Equal(t, "", got.DateString())
	assert.Len(t, src.calls, 14)
	assert.Equal(t, "2019-12-18", src.calls[13])
	assert.Contains(t, obs.names(), "price.not_found")
}

func TestFindPrice_SourceErrorIsAMiss(t *testing.T) {
	src := &mapPriceSource{
		prices: map[string]float64{"2019-12-30": 12.0},
		errs:   map[string]error{"2019-12-31": errors.New("boom")},
	}
	obs := &recordingObserver{}
	lookup := NewPriceLookup(src, DefaultPriceWindowDays, obs)

	got, err := lookup.FindPrice(context.Background(), "COF", mustDate(t, "2019-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "2019-12-30", got.DateString())
	assert.Contains(t, obs.names(), "price.source_error")
}

func TestFindPrice_ZeroPriceIsAMiss(t *testing.T) {
	src := &mapPriceSource{prices: map[string]float64{"2019-12-31": 0, "2019-12-29": 3}}
	lookup := NewPriceLookup(src, DefaultPriceWindowDays, nil)

	got, err := lookup.FindPrice(context.Background(), "COF", mustDate(t, "2019-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "2019-12-29", got.DateString())
}

func TestFindPrice_ContextCancelled(t *testing.T) {
	src := &mapPriceSource{}
	lookup := NewPriceLookup(src, DefaultPriceWindowDays, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lookup.FindPrice(ctx, "COF", mustDate(t, "2019-12-31"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}

func TestFindPrice_CustomWindow(t *testing.T) {
	src := &mapPriceSource{}
	lookup := NewPriceLookup(src, 3, nil)

	got, err := lookup.FindPrice(context.Background(), "COF", mustDate(t, "2020-01-02"))
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, []string{"2020-01-02", "2020-01-01", "2019-12-31"}, src.calls)
}
