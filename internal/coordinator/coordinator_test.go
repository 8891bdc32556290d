package coordinator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fairvalue/internal/fetcher"
	"fairvalue/internal/report"
	"fairvalue/internal/testutil"
	"fairvalue/internal/valuation"
)

// builderFunc adapts a function to ReportBuilder
type builderFunc func(ctx context.Context, ticker string, breachYear int) (*report.Report, error)

func (f builderFunc) Build(ctx context.Context, ticker string, breachYear int) (*report.Report, error) {
	return f(ctx, ticker, breachYear)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProvider(tickers ...string) *testutil.MockProvider {
	p := testutil.NewMockProvider()
	for _, ticker := range tickers {
		for _, c := range testutil.SteadyCompany(2014, 2024) {
			p.AddYear(ticker, c)
		}
		p.SetPrice(ticker, "2020-12-31", 100)
	}
	return p
}

func newCoordinator(t *testing.T, b ReportBuilder, jobs []Job, out io.Writer) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	return New(b, dir, jobs, WithOutput(out), WithLogger(quietLogger())), dir
}

func TestNew(t *testing.T) {
	jobs := []Job{{"GRMN", 2020}, {"EFX", 2017}}

	coord := New(builderFunc(nil), "./output", jobs)
	if coord == nil {
		t.Fatal("New() returned nil")
	}

	if len(coord.jobs) != len(jobs) {
		t.Errorf("New() created coordinator with %d jobs, want %d", len(coord.jobs), len(jobs))
	}
	if coord.out != os.Stdout {
		t.Error("default output is not stdout")
	}
}

func TestRun_Success(t *testing.T) {
	b := report.NewBuilder(newProvider("GRMN", "COF"), valuation.DefaultPolicy(), report.DefaultWindow(), nil)
	var out bytes.Buffer
	coord, dir := newCoordinator(t, b, []Job{{"GRMN", 2020}, {"COF", 2020}}, &out)

	results, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("%s: result not OK: %+v", r.Ticker, r)
		}
		want := filepath.Join(dir, r.Ticker+"_metrics.csv")
		if r.Path != want {
			t.Errorf("%s: Path = %q, want %q", r.Ticker, r.Path, want)
		}
		if _, err := os.Stat(r.Path); err != nil {
			t.Errorf("%s: report not written: %v", r.Ticker, err)
		}
	}

	if !strings.Contains(out.String(), "GRMN (2020): "+filepath.Join(dir, "GRMN_metrics.csv")) {
		t.Errorf("status output = %q", out.String())
	}
}

func TestRun_WithErrors(t *testing.T) {
	p := newProvider("GRMN", "EFX")
	p.Err["OKTA"] = errors.New("provider down")
	b := report.NewBuilder(p, valuation.DefaultPolicy(), report.DefaultWindow(), nil)

	var out bytes.Buffer
	coord, _ := newCoordinator(t, b, []Job{{"GRMN", 2020}, {"OKTA", 2022}, {"EFX", 2020}}, &out)

	// Run completes even if some companies fail; errors are per result
	results, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if !results[0].OK() || !results[2].OK() {
		t.Errorf("healthy companies failed: %+v, %+v", results[0], results[2])
	}

	okta := results[1]
	if okta.Error == nil || okta.Partial || okta.Path != "" {
		t.Errorf("OKTA result = %+v, want plain error", okta)
	}
	if !strings.Contains(out.String(), "OKTA (2022): ERROR - ") {
		t.Errorf("status output = %q", out.String())
	}
}

func TestRun_LogsFailureType(t *testing.T) {
	p := newProvider()
	p.Err["OKTA"] = fetcher.NewServerError(503)
	b := report.NewBuilder(p, valuation.DefaultPolicy(), report.DefaultWindow(), nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	coord := New(b, t.TempDir(), []Job{{"OKTA", 2022}}, WithOutput(io.Discard), WithLogger(logger))

	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	for _, want := range []string{"skipping company", "error_type=server", "retryable=true", "ticker=OKTA"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log output missing %q: %s", want, logs.String())
		}
	}
}

func TestRun_PartialWritesMetricsOnly(t *testing.T) {
	w := report.DefaultWindow()
	w.YearsBefore = 3
	b := report.NewBuilder(newProvider("TMUS"), valuation.DefaultPolicy(), w, nil)

	var out bytes.Buffer
	coord, _ := newCoordinator(t, b, []Job{{"TMUS", 2021}}, &out)

	results, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	r := results[0]
	if !r.Partial {
		t.Fatalf("Partial = false, want true: %+v", r)
	}
	if !errors.Is(r.Error, valuation.ErrInsufficientHistory) {
		t.Errorf("Error = %v, want insufficient history", r.Error)
	}

	data, err := os.ReadFile(r.Path)
	if err != nil {
		t.Fatalf("reading metrics-only report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "Year,Revenue (Mio),Free Cash Flow (Mio),EPS,ROIC" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(out.String(), "TMUS (2021): PARTIAL ") {
		t.Errorf("status output = %q", out.String())
	}
}

func TestRun_NoCompanies(t *testing.T) {
	coord, _ := newCoordinator(t, builderFunc(nil), nil, io.Discard)

	_, err := coord.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error for no companies, got nil")
	}

	expectedErrMsg := "no companies configured"
	if err.Error() != expectedErrMsg {
		t.Errorf("Run() error = %q, want %q", err.Error(), expectedErrMsg)
	}
}

func TestRun_SequentialOrder(t *testing.T) {
	var order []string
	b := builderFunc(func(ctx context.Context, ticker string, breachYear int) (*report.Report, error) {
		order = append(order, ticker)
		return nil, errors.New("skip")
	})

	coord, _ := newCoordinator(t, b, []Job{{"A", 2020}, {"B", 2020}, {"C", 2020}}, io.Discard)
	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if got := strings.Join(order, ","); got != "A,B,C" {
		t.Errorf("order = %q, want A,B,C", got)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	b := builderFunc(func(ctx context.Context, ticker string, breachYear int) (*report.Report, error) {
		calls++
		cancel()
		return nil, ctx.Err()
	})

	coord, _ := newCoordinator(t, b, []Job{{"A", 2020}, {"B", 2020}}, io.Discard)
	results, err := coord.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("builder called %d times, want 1", calls)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
}

// cancelOnPrice cancels the run on its first price lookup
type cancelOnPrice struct {
	*testutil.MockProvider
	cancel context.CancelFunc
}

func (p cancelOnPrice) ClosePrice(ctx context.Context, ticker string, date time.Time) (float64, bool, error) {
	p.cancel()
	return p.MockProvider.ClosePrice(ctx, ticker, date)
}

func TestRun_CancelledDuringHistoryKeepsExistingReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := report.NewBuilder(cancelOnPrice{newProvider("GRMN"), cancel}, valuation.DefaultPolicy(), report.DefaultWindow(), nil)
	var out bytes.Buffer
	coord, dir := newCoordinator(t, b, []Job{{"GRMN", 2020}}, &out)

	existing := filepath.Join(dir, "GRMN_metrics.csv")
	previous := []byte("Year,Revenue (Mio)\n2020,1.00\n\nMOS Price (50%),11.36\n")
	if err := os.WriteFile(existing, previous, 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := coord.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}

	r := results[0]
	if r.Partial || r.Path != "" {
		t.Errorf("result = %+v, want plain error without a report", r)
	}
	if !errors.Is(r.Error, context.Canceled) {
		t.Errorf("result error = %v, want context.Canceled", r.Error)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, previous) {
		t.Errorf("existing report overwritten: %q", data)
	}
	if !strings.Contains(out.String(), "GRMN (2020): ERROR - ") {
		t.Errorf("status output = %q", out.String())
	}
}

func TestRun_FetchesStatementsOnce(t *testing.T) {
	p := newProvider("GRMN")
	b := report.NewBuilder(p, valuation.DefaultPolicy(), report.DefaultWindow(), nil)

	coord, _ := newCoordinator(t, b, []Job{{"GRMN", 2020}}, io.Discard)
	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if got := p.Calls("income", "GRMN"); got != 1 {
		t.Errorf("income fetched %d times, want 1", got)
	}
}
