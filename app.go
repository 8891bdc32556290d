package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"fairvalue/internal/config"
	"fairvalue/internal/fetcher"
	"fairvalue/internal/fmp"
	"fairvalue/internal/logging"
	"fairvalue/internal/ratelimit"
	"fairvalue/internal/report"
	"fairvalue/internal/valuation"
)

// app holds the state shared by every command
type app struct {
	configFile string
	envFile    string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

// load reads the configuration, applies command-line overrides and installs
// the process logger
func (a *app) load(cmd *cobra.Command) error {
	var opts []config.Option
	if a.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}
	if a.envFile != "" {
		opts = append(opts, config.WithEnvFiles(a.envFile))
	}

	v, err := config.New(opts...)
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("output"); f != nil {
		if err := v.BindPFlag("output_dir", f); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		v.Set("log.console_level", a.logLevel)
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logOpts, err := cfg.LogOptions()
	if err != nil {
		return err
	}
	logOpts.Console = cmd.ErrOrStderr()
	logger, closeLog, err := logging.Setup(logOpts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	err := a.closeLog()
	a.closeLog = nil
	return err
}

// closing releases the log file once fn returns, whether or not it failed
func (a *app) closing(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

// provider builds the rate-limited, caching Financial Modeling Prep client
func (a *app) provider() fetcher.Provider {
	cfg := a.cfg
	client := fmp.NewClient(cfg.FMPAPIKey, cfg.FMPBaseURL,
		fmp.WithStatementLimit(cfg.StatementLimit),
		fmp.WithLimiter(ratelimit.New(cfg.Limits())),
		fmp.WithHTTPClient(fetcher.NewHTTPClient(cfg.FMPBaseURL,
			fetcher.WithRetryCount(cfg.RetryCount),
			fetcher.WithTimeout(cfg.RequestTimeout),
			fetcher.WithLogger(a.logger))),
		fmp.WithLogger(a.logger),
	)
	return fetcher.NewCachingProvider(client)
}

func (a *app) observer() valuation.Observer {
	return valuation.NewSlogObserver(a.logger)
}

func (a *app) builder(p fetcher.Provider) *report.Builder {
	return report.NewBuilder(p, a.cfg.Policy(), a.cfg.ReportWindow(), a.observer())
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fairvalue",
		Short: "Estimate intrinsic value around a breach year",
		Long: `fairvalue values companies around a known event year from Financial
Modeling Prep statements: five-year growth, a discounted ten-year intrinsic
value with margin of safety, and a ten-cap owner-earnings price.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Configuration file (default ./config.yaml or $HOME/.fairvalue/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Dotenv file to load (default ./.env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Console log level: debug, info, warn or error")

	run := newRunCmd(a)
	root.AddCommand(run, newTenCapCmd(a), newGrowthCmd(a), newIntrinsicCmd())
	for _, cmd := range root.Commands() {
		if cmd.RunE != nil {
			cmd.RunE = a.closing(cmd.RunE)
		}
	}

	// run is also the default command
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())
	return root
}
