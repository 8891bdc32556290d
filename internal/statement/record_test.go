package statement

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRecord_Float(t *testing.T) {
	rec := Record{
		"float":    1.5,
		"int":      3,
		"number":   json.Number("2.25"),
		"string":   " 4.5 ",
		"bad":      "n/a",
		"null":     nil,
		"bool":     true,
		"nan":      math.NaN(),
		"inf":      "+Inf",
		"negative": -7.0,
	}

	tests := []struct {
		key  string
		want float64
	}{
		{"float", 1.5},
		{"int", 3},
		{"number", 2.25},
		{"string", 4.5},
		{"bad", 0},
		{"null", 0},
		{"bool", 0},
		{"nan", 0},
		{"inf", 0},
		{"negative", -7},
		{"missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := rec.Float(tt.key); got != tt.want {
				t.Errorf("Float(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRecord_Millions(t *testing.T) {
	rec := Record{"revenue": 2_500_000.0}
	if got := rec.Millions("revenue"); got != 2.5 {
		t.Errorf("Millions() = %v, want 2.5", got)
	}
}

func TestRecord_CalendarYear(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"string", Record{"calendarYear": "2019"}, "2019"},
		{"number", Record{"calendarYear": 2019.0}, "2019"},
		{"fiscal fallback", Record{"fiscalYear": "2020"}, "2020"},
		{"calendar wins", Record{"calendarYear": "2018", "fiscalYear": "2019"}, "2018"},
		{"empty calendar falls back", Record{"calendarYear": "", "fiscalYear": "2021"}, "2021"},
		{"none", Record{"date": "2019-12-31"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.CalendarYear(); got != tt.want {
				t.Errorf("CalendarYear() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollection_ForYear(t *testing.T) {
	c := Collection{
		{"calendarYear": "2020", "eps": 2.0},
		{"calendarYear": "2019", "eps": 1.0},
		{"calendarYear": "2019", "eps": 9.0},
	}

	rec, ok := c.ForYear(2019)
	if !ok {
		t.Fatal("ForYear(2019) found nothing")
	}
	if got := rec.Float("eps"); got != 1.0 {
		t.Errorf("ForYear(2019) eps = %v, want first match 1.0", got)
	}

	if _, ok := c.ForYear(2017); ok {
		t.Error("ForYear(2017) = found, want missing")
	}
}

func TestRecord_KeysContaining(t *testing.T) {
	rec := Record{
		"depreciationAndAmortization": 1.0,
		"Depreciation":                2.0,
		"capitalExpenditure":          3.0,
	}
	got := rec.KeysContaining("depreciation")
	if len(got) != 2 || got[0] != "Depreciation" || got[1] != "depreciationAndAmortization" {
		t.Errorf("KeysContaining() = %v", got)
	}
}
