package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fairvalue/internal/fetcher"
	"fairvalue/internal/report"
	"fairvalue/internal/valuation"
)

// Job is one company to value
type Job struct {
	Ticker     string
	BreachYear int
}

// ReportBuilder produces the valuation report for one company
type ReportBuilder interface {
	Build(ctx context.Context, ticker string, breachYear int) (*report.Report, error)
}

// Coordinator values companies one after another and writes their reports
type Coordinator struct {
	builder   ReportBuilder
	outputDir string
	jobs      []Job
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithOutput sets where the per-company status lines are printed
func WithOutput(w io.Writer) Option {
	return func(c *Coordinator) {
		c.out = w
	}
}

// WithLogger sets the logger for progress and failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates a new Coordinator writing reports to outputDir
func New(builder ReportBuilder, outputDir string, jobs []Job, opts ...Option) *Coordinator {
	c := &Coordinator{
		builder:   builder,
		outputDir: outputDir,
		jobs:      jobs,
		out:       os.Stdout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every job in order and returns one Result per job attempted.
// A failing company never stops the others; only cancellation of ctx does,
// and then Run returns ctx.Err(). Metrics-only reports are written only when
// the breach year lacks growth history, never for an aborted valuation.
// Status lines are printed as each company finishes, in the format:
//   - Success: "TICKER (YEAR): PATH"
//   - Partial: "TICKER (YEAR): PARTIAL PATH - error message"
//   - Error: "TICKER (YEAR): ERROR - error message"
func (c *Coordinator) Run(ctx context.Context) ([]fetcher.Result, error) {
	if len(c.jobs) == 0 {
		return nil, fmt.Errorf("no companies configured")
	}

	results := make([]fetcher.Result, 0, len(c.jobs))
	for _, job := range c.jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := c.process(ctx, job)
		results = append(results, result)
		c.print(result)
	}

	return results, ctx.Err()
}

func (c *Coordinator) process(ctx context.Context, job Job) fetcher.Result {
	result := fetcher.Result{Ticker: job.Ticker, BreachYear: job.BreachYear}
	logger := c.logger.With("ticker", job.Ticker, "breach_year", job.BreachYear)
	logger.Info("processing company")

	rep, err := c.builder.Build(ctx, job.Ticker, job.BreachYear)
	if rep == nil {
		if err == nil {
			err = errors.New("no report produced")
		}
		logger.Error("skipping company",
			"error", err,
			"error_type", fetcher.TypeOf(err),
			"retryable", fetcher.IsRetryable(err))
		result.Error = err
		return result
	}

	if err != nil && !report.IsPartial(err) {
		logger.Error("valuation aborted", "error", err)
		result.Error = err
		return result
	}

	if err != nil {
		// the valuation failed but the raw metrics are still worth keeping
		logger.Error("skipping MOS section", "error", err)
		result.Partial = true
		result.Error = err
		path, werr := rep.WriteMetricsOnly(c.outputDir)
		if werr != nil {
			result.Error = errors.Join(err, werr)
			return result
		}
		result.Path = path
		return result
	}

	path, err := rep.WriteFile(c.outputDir)
	if err != nil {
		logger.Error("writing report failed", "error", err)
		result.Error = err
		return result
	}
	result.Path = path

	counts := map[valuation.Severity]int{}
	for _, row := range rep.History {
		counts[row.Severity]++
	}
	logger.Info("saved report",
		"path", path,
		"years", len(rep.Metrics),
		"history_ok", counts[valuation.SeverityOK],
		"history_degraded", counts[valuation.SeverityDegraded],
		"history_fatal", counts[valuation.SeverityFatal])
	return result
}

func (c *Coordinator) print(r fetcher.Result) {
	switch {
	case r.OK():
		fmt.Fprintf(c.out, "%s (%d): %s\n", r.Ticker, r.BreachYear, r.Path)
	case r.Partial && r.Path != "":
		fmt.Fprintf(c.out, "%s (%d): PARTIAL %s - %v\n", r.Ticker, r.BreachYear, r.Path, r.Error)
	default:
		fmt.Fprintf(c.out, "%s (%d): ERROR - %v\n", r.Ticker, r.BreachYear, r.Error)
	}
}
