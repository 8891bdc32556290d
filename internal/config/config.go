package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fairvalue/internal/fmp"
	"fairvalue/internal/logging"
	"fairvalue/internal/ratelimit"
	"fairvalue/internal/report"
	"fairvalue/internal/valuation"
)

// Company is one ticker to value and the breach year to center on.
type Company struct {
	Ticker     string `mapstructure:"ticker"`
	BreachYear int    `mapstructure:"breach_year"`
}

// String renders the company as TICKER:YEAR, the form ParseCompany reads.
func (c Company) String() string {
	return fmt.Sprintf("%s:%d", c.Ticker, c.BreachYear)
}

// WindowConfig positions the report around the breach year.
type WindowConfig struct {
	YearsBefore int `mapstructure:"years_before"`
	YearsAfter  int `mapstructure:"years_after"`
	HistoryFrom int `mapstructure:"history_from"`
	HistoryTo   int `mapstructure:"history_to"`
}

// ValuationConfig holds the tunable valuation constants.
type ValuationConfig struct {
	DiscountRate           float64 `mapstructure:"discount_rate"`
	MOSFraction            float64 `mapstructure:"mos_fraction"`
	FuturePEMultiplier     float64 `mapstructure:"future_pe_multiplier"`
	CapRate                float64 `mapstructure:"cap_rate"`
	MaintenanceCapexWeight float64 `mapstructure:"maintenance_capex_weight"`
	PriceWindowDays        int     `mapstructure:"price_window_days"`
	GrowthWindowYears      int     `mapstructure:"growth_window_years"`
}

// LogConfig configures console and file logging.
type LogConfig struct {
	Dir          string `mapstructure:"dir"`
	File         string `mapstructure:"file"`
	ConsoleLevel string `mapstructure:"console_level"`
	FileLevel    string `mapstructure:"file_level"`
}

// Config holds all configuration for the fair value tool.
type Config struct {
	// Financial Modeling Prep access
	FMPAPIKey  string `mapstructure:"fmp_api_key"`
	FMPBaseURL string `mapstructure:"fmp_base_url"`

	// Provider request tuning
	StatementLimit         int           `mapstructure:"statement_limit"`
	RequestsPerSecond      float64       `mapstructure:"requests_per_second"`
	PriceRequestsPerSecond float64       `mapstructure:"price_requests_per_second"`
	RetryCount             int           `mapstructure:"retry_count"`
	RequestTimeout         time.Duration `mapstructure:"request_timeout"`

	OutputDir string    `mapstructure:"output_dir"`
	Companies []Company `mapstructure:"companies"`

	Window    WindowConfig    `mapstructure:"window"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Log       LogConfig       `mapstructure:"log"`
}

// DefaultCompanies are valued when no companies are configured.
func DefaultCompanies() []Company {
	return []Company{
		{"TMUS", 2021},
		{"OKTA", 2022},
		{"EFX", 2017},
		{"CON.DE", 2022},
		{"MPL.AX", 2022},
		{"COF", 2019},
		{"GRMN", 2020},
	}
}

type options struct {
	configFile string
	envFiles   []string
}

// Option configures New.
type Option func(*options)

// WithConfigFile reads path instead of searching for config.yaml.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithEnvFiles loads the given dotenv files instead of ./.env.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = paths
	}
}

// New prepares a viper instance with defaults, environment bindings and the
// optional config file. Callers may bind command-line flags on it before
// passing it to Decode.
//
// Environment variables take precedence over the config file. A .env file
// is loaded first; it never overrides variables already set.
//
// Recognised environment variables:
//   - FMP_API_KEY (required)
//   - FMP_BASE_URL (optional, defaults to production)
//   - FAIRVALUE_OUTPUT_DIR
//   - FAIRVALUE_TICKERS (comma separated TICKER:YEAR list)
//   - FAIRVALUE_LOG_LEVEL
//   - FAIRVALUE_<SECTION>_<KEY> for any nested key, e.g.
//     FAIRVALUE_VALUATION_DISCOUNT_RATE
func New(opts ...Option) (*viper.Viper, error) {
	o := options{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := loadEnvFiles(o.envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FAIRVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("fmp_api_key", "FMP_API_KEY")
	v.BindEnv("fmp_base_url", "FMP_BASE_URL")
	v.BindEnv("tickers", "FAIRVALUE_TICKERS")
	v.BindEnv("log.console_level", "FAIRVALUE_LOG_LEVEL")

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.fairvalue")

	// Read config file (ignore if not found)
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return v, nil
}

func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fmp_base_url", fmp.DefaultBaseURL)
	v.SetDefault("output_dir", "./output")

	limits := ratelimit.DefaultLimits()
	v.SetDefault("statement_limit", fmp.DefaultStatementLimit)
	v.SetDefault("requests_per_second", limits[ratelimit.APIStatements])
	v.SetDefault("price_requests_per_second", limits[ratelimit.APIPrices])
	v.SetDefault("retry_count", 3)
	v.SetDefault("request_timeout", 30*time.Second)

	companies := make([]map[string]any, 0, len(DefaultCompanies()))
	for _, c := range DefaultCompanies() {
		companies = append(companies, map[string]any{"ticker": c.Ticker, "breach_year": c.BreachYear})
	}
	v.SetDefault("companies", companies)
	v.SetDefault("tickers", "")

	w := report.DefaultWindow()
	v.SetDefault("window.years_before", w.YearsBefore)
	v.SetDefault("window.years_after", w.YearsAfter)
	v.SetDefault("window.history_from", w.HistoryFrom)
	v.SetDefault("window.history_to", w.HistoryTo)

	p := valuation.DefaultPolicy()
	v.SetDefault("valuation.discount_rate", p.DiscountRate)
	v.SetDefault("valuation.mos_fraction", p.MOSFraction)
	v.SetDefault("valuation.future_pe_multiplier", p.FuturePEMultiplier)
	v.SetDefault("valuation.cap_rate", p.CapRate)
	v.SetDefault("valuation.maintenance_capex_weight", p.MaintenanceCapexWeight)
	v.SetDefault("valuation.price_window_days", p.PriceWindowDays)
	v.SetDefault("valuation.growth_window_years", p.GrowthWindowYears)

	l := logging.DefaultOptions()
	v.SetDefault("log.dir", l.Dir)
	v.SetDefault("log.file", l.File)
	v.SetDefault("log.console_level", "info")
	v.SetDefault("log.file_level", "debug")
}

// Load reads configuration from .env, environment variables and the
// optional config file.
func Load(opts ...Option) (*Config, error) {
	v, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if tickers := strings.TrimSpace(v.GetString("tickers")); tickers != "" {
		companies, err := ParseCompanies(strings.Split(tickers, ","))
		if err != nil {
			return nil, err
		}
		config.Companies = companies
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports missing required settings first, then every invalid one.
func (c *Config) Validate() error {
	var missing []string
	if c.FMPAPIKey == "" {
		missing = append(missing, "FMP_API_KEY")
	}
	if c.FMPBaseURL == "" {
		missing = append(missing, "FMP_BASE_URL")
	}
	if c.OutputDir == "" {
		missing = append(missing, "output_dir")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var problems []string
	if c.StatementLimit <= 0 {
		problems = append(problems, fmt.Sprintf("statement_limit %d must be positive", c.StatementLimit))
	}
	if c.RetryCount < 0 {
		problems = append(problems, fmt.Sprintf("retry_count %d must not be negative", c.RetryCount))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("request_timeout %s must be positive", c.RequestTimeout))
	}
	for i, co := range c.Companies {
		if co.Ticker == "" {
			problems = append(problems, fmt.Sprintf("companies[%d] has no ticker", i))
		}
		if co.BreachYear < 1900 {
			problems = append(problems, fmt.Sprintf("companies[%d] breach year %d is not a valid year", i, co.BreachYear))
		}
	}
	if err := c.ReportWindow().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.Policy().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.LogOptions(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Policy returns the configured valuation policy.
func (c *Config) Policy() valuation.Policy {
	return valuation.Policy{
		DiscountRate:           c.Valuation.DiscountRate,
		MOSFraction:            c.Valuation.MOSFraction,
		FuturePEMultiplier:     c.Valuation.FuturePEMultiplier,
		CapRate:                c.Valuation.CapRate,
		MaintenanceCapexWeight: c.Valuation.MaintenanceCapexWeight,
		PriceWindowDays:        c.Valuation.PriceWindowDays,
		GrowthWindowYears:      c.Valuation.GrowthWindowYears,
	}
}

// ReportWindow returns the configured report window.
func (c *Config) ReportWindow() report.Window {
	return report.Window{
		YearsBefore: c.Window.YearsBefore,
		YearsAfter:  c.Window.YearsAfter,
		HistoryFrom: c.Window.HistoryFrom,
		HistoryTo:   c.Window.HistoryTo,
	}
}

// Limits returns the provider rate limits.
func (c *Config) Limits() ratelimit.Limits {
	return ratelimit.Limits{
		ratelimit.APIStatements: c.RequestsPerSecond,
		ratelimit.APIPrices:     c.PriceRequestsPerSecond,
	}
}

// LogOptions returns the logging setup, failing on unknown level names.
func (c *Config) LogOptions() (logging.Options, error) {
	console, err := logging.ParseLevel(c.Log.ConsoleLevel)
	if err != nil {
		return logging.Options{}, fmt.Errorf("log.console_level: %w", err)
	}
	file, err := logging.ParseLevel(c.Log.FileLevel)
	if err != nil {
		return logging.Options{}, fmt.Errorf("log.file_level: %w", err)
	}
	return logging.Options{
		Dir:          c.Log.Dir,
		File:         c.Log.File,
		ConsoleLevel: console,
		FileLevel:    file,
	}, nil
}

// ParseCompany parses TICKER:YEAR.
func ParseCompany(s string) (Company, error) {
	ticker, year, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || ticker == "" {
		return Company{}, fmt.Errorf("invalid company %q, want TICKER:YEAR", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Company{}, fmt.Errorf("invalid breach year in %q: %w", s, err)
	}
	return Company{Ticker: strings.ToUpper(ticker), BreachYear: y}, nil
}

// ParseCompanies parses every TICKER:YEAR entry, skipping blanks.
func ParseCompanies(entries []string) ([]Company, error) {
	var out []Company
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		c, err := ParseCompany(e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
