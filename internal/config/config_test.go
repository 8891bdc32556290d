package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"fairvalue/internal/fmp"
	"fairvalue/internal/ratelimit"
	"fairvalue/internal/valuation"
)

// isolate points every lookup at an empty temp dir so that no developer
// config or .env leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"FMP_API_KEY", "FMP_BASE_URL", "FAIRVALUE_OUTPUT_DIR", "FAIRVALUE_TICKERS", "FAIRVALUE_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoad_Success(t *testing.T) {
	isolate(t)
	t.Setenv("FMP_API_KEY", "test_fmp_key")
	t.Setenv("FMP_BASE_URL", "https://test.fmp.example")
	t.Setenv("FAIRVALUE_OUTPUT_DIR", "/tmp/reports")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"FMPAPIKey", cfg.FMPAPIKey, "test_fmp_key"},
		{"FMPBaseURL", cfg.FMPBaseURL, "https://test.fmp.example"},
		{"OutputDir", cfg.OutputDir, "/tmp/reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("FMP_API_KEY", "test_fmp_key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.FMPBaseURL != fmp.DefaultBaseURL {
		t.Errorf("FMPBaseURL = %q, want %q", cfg.FMPBaseURL, fmp.DefaultBaseURL)
	}
	if cfg.OutputDir != "./output" {
		t.Errorf("OutputDir = %q, want ./output", cfg.OutputDir)
	}
	if cfg.StatementLimit != fmp.DefaultStatementLimit {
		t.Errorf("StatementLimit = %d, want %d", cfg.StatementLimit, fmp.DefaultStatementLimit)
	}
	if cfg.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", cfg.RetryCount)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if !reflect.DeepEqual(cfg.Companies, DefaultCompanies()) {
		t.Errorf("Companies = %v, want %v", cfg.Companies, DefaultCompanies())
	}
	if got := cfg.Policy(); got != valuation.DefaultPolicy() {
		t.Errorf("Policy() = %+v, want %+v", got, valuation.DefaultPolicy())
	}

	w := cfg.ReportWindow()
	if w.YearsBefore != 6 || w.YearsAfter != 4 || w.HistoryFrom != -1 || w.HistoryTo != 3 {
		t.Errorf("ReportWindow() = %+v", w)
	}

	limits := cfg.Limits()
	if limits[ratelimit.APIStatements] != 2 || limits[ratelimit.APIPrices] != 5 {
		t.Errorf("Limits() = %v", limits)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	isolate(t)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "missing required configuration: FMP_API_KEY") {
		t.Errorf("error = %q, want missing FMP_API_KEY", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envFile, []byte("FMP_API_KEY=from_dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FMP_API_KEY") })

	cfg, err := Load(WithEnvFiles(envFile))
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.FMPAPIKey != "from_dotenv" {
		t.Errorf("FMPAPIKey = %q, want from_dotenv", cfg.FMPAPIKey)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FMP_API_KEY=from_dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FMP_API_KEY", "from_env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.FMPAPIKey != "from_env" {
		t.Errorf("FMPAPIKey = %q, want from_env", cfg.FMPAPIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("FMP_API_KEY", "test_fmp_key")

	yaml := `
output_dir: ./reports
statement_limit: 12
request_timeout: 5s
companies:
  - ticker: GRMN
    breach_year: 2020
  - ticker: EFX
    breach_year: 2017
window:
  years_after: 3
valuation:
  discount_rate: 0.12
  mos_fraction: 0.3
log:
  console_level: warn
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	want := []Company{{"GRMN", 2020}, {"EFX", 2017}}
	if !reflect.DeepEqual(cfg.Companies, want) {
		t.Errorf("Companies = %v, want %v", cfg.Companies, want)
	}
	if cfg.OutputDir != "./reports" {
		t.Errorf("OutputDir = %q, want ./reports", cfg.OutputDir)
	}
	if cfg.StatementLimit != 12 {
		t.Errorf("StatementLimit = %d, want 12", cfg.StatementLimit)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.Window.YearsAfter != 3 || cfg.Window.YearsBefore != 6 {
		t.Errorf("Window = %+v, want years_after 3 and default years_before", cfg.Window)
	}

	p := cfg.Policy()
	if p.DiscountRate != 0.12 || p.MOSFraction != 0.3 || p.CapRate != valuation.DefaultCapRate {
		t.Errorf("Policy() = %+v", p)
	}

	opts, err := cfg.LogOptions()
	if err != nil {
		t.Fatalf("LogOptions() error = %v", err)
	}
	if opts.ConsoleLevel.String() != "WARN" {
		t.Errorf("ConsoleLevel = %v, want WARN", opts.ConsoleLevel)
	}
}

func TestLoad_TickersEnvOverridesCompanies(t *testing.T) {
	isolate(t)
	t.Setenv("FMP_API_KEY", "test_fmp_key")
	t.Setenv("FAIRVALUE_TICKERS", "grmn:2020, COF:2019")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	want := []Company{{"GRMN", 2020}, {"COF", 2019}}
	if !reflect.DeepEqual(cfg.Companies, want) {
		t.Errorf("Companies = %v, want %v", cfg.Companies, want)
	}
}

func TestLoad_NestedEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("FMP_API_KEY", "test_fmp_key")
	t.Setenv("FAIRVALUE_VALUATION_CAP_RATE", "0.08")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Valuation.CapRate != 0.08 {
		t.Errorf("CapRate = %v, want 0.08", cfg.Valuation.CapRate)
	}
}

func TestValidate_CollectsProblems(t *testing.T) {
	isolate(t)
	t.Setenv("FMP_API_KEY", "test_fmp_key")
	t.Setenv("FAIRVALUE_STATEMENT_LIMIT", "0")
	t.Setenv("FAIRVALUE_REQUEST_TIMEOUT", "0s")
	t.Setenv("FAIRVALUE_VALUATION_MOS_FRACTION", "1.5")
	t.Setenv("FAIRVALUE_LOG_LEVEL", "chatty")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}

	msg := err.Error()
	for _, want := range []string{"invalid configuration", "statement_limit", "request_timeout", "margin of safety", "log.console_level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestParseCompany(t *testing.T) {
	tests := []struct {
		in      string
		want    Company
		wantErr bool
	}{
		{"TMUS:2021", Company{"TMUS", 2021}, false},
		{" con.de:2022 ", Company{"CON.DE", 2022}, false},
		{"GRMN", Company{}, true},
		{":2020", Company{}, true},
		{"EFX:twenty", Company{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompany(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompany(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCompany(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompany_String(t *testing.T) {
	if got := (Company{"MPL.AX", 2022}).String(); got != "MPL.AX:2022" {
		t.Errorf("String() = %q, want MPL.AX:2022", got)
	}
}
