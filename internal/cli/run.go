package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/racesms/internal/config"
	"github.com/roach88/racesms/internal/engine"
	"github.com/roach88/racesms/internal/feed"
	"github.com/roach88/racesms/internal/ledger"
	"github.com/roach88/racesms/internal/model"
	"github.com/roach88/racesms/internal/modem"
	"github.com/roach88/racesms/internal/policy"
	"github.com/roach88/racesms/internal/roster"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config  string
	Roster  string
	Results string
	Ledger  string
	Modem   string
	DryRun  bool

	// Transport overrides the mmcli transport (for testing).
	Transport engine.Transport
	// RunIDs overrides the UUIDv7 run id generator (for testing).
	RunIDs engine.RunIDGenerator
	// Sleeper overrides the settle-delay sleeper (for testing).
	Sleeper engine.Sleeper
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Notify participants of their results",
		Long: `Run one notification pass.

The roster and the results are read, every result not yet notified is
matched to a phone number, and its message is sent through ModemManager.
Each message sent is appended to the ledger before the next result is
handled, so the pass can be repeated safely at any time.

The ledger is a CSV file unless its name ends in .db, .sqlite or .sqlite3,
in which case it is a SQLite database.

Example:
  racesms run --roster roster.csv --results results.csv
  racesms run --config race.yaml --ledger sms.db --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to a YAML or TOML config file")
	cmd.Flags().StringVar(&opts.Roster, "roster", "", "path to the roster CSV (name,phone_number,card)")
	cmd.Flags().StringVar(&opts.Results, "results", "", "path to the results CSV (card,name,stat,time)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to the ledger (default sms.csv)")
	cmd.Flags().StringVar(&opts.Modem, "modem", "", "modem object path (default: first modem)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compose messages without sending or recording them")

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RunOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Roster != "" {
		cfg.Roster = opts.Roster
	}
	if opts.Results != "" {
		cfg.Results = opts.Results
	}
	if opts.Ledger != "" {
		cfg.Ledger = opts.Ledger
	}
	if opts.Modem != "" {
		cfg.Modem = opts.Modem
	}
	if cfg.Roster == "" {
		return nil, errors.New("roster is required (--roster or roster in config)")
	}
	if cfg.Results == "" {
		return nil, errors.New("results are required (--results or results in config)")
	}
	return cfg, nil
}

// inputs are the roster index and results, read concurrently.
type inputs struct {
	index   *roster.Index
	results []model.Result
}

func readInputs(ctx context.Context, cfg *config.Config) (*inputs, error) {
	var (
		wg                   sync.WaitGroup
		in                   inputs
		rosterErr, resultErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		in.index, rosterErr = roster.LoadFile(cfg.Roster)
	}()
	go func() {
		defer wg.Done()
		in.results, resultErr = feed.NewCSVSource(cfg.Results).Results(ctx)
	}()
	wg.Wait()

	if err := errors.Join(rosterErr, resultErr); err != nil {
		return nil, err
	}
	return &in, nil
}

func runPass(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(out, ExitCommandError, CodeConfig, "invalid configuration", err)
	}

	pol, err := policy.New(cfg.PolicyOptions())
	if err != nil {
		return fail(out, ExitCommandError, CodeConfig, "invalid message template", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after the current participant", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	in, err := readInputs(ctx, cfg)
	if err != nil {
		return fail(out, ExitCommandError, CodeInput, "failed to read inputs", err)
	}
	slog.Info("inputs loaded", "roster", cfg.Roster, "results", cfg.Results, "count", len(in.results))

	led, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return fail(out, ExitCommandError, CodeLedger, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := led.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	var transport engine.Transport
	switch {
	case opts.DryRun:
		slog.Info("dry run, no SMS will be sent")
	case opts.Transport != nil:
		transport = opts.Transport
	default:
		transport = modem.New(cfg.MMCLI)
	}

	engineOpts := []engine.Option{
		engine.WithSettleDelay(cfg.Settle()),
		engine.WithStatePolls(cfg.StatePolls),
		engine.WithModem(model.Modem(cfg.Modem)),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.Sleeper != nil {
		engineOpts = append(engineOpts, engine.WithSleeper(opts.Sleeper))
	}
	eng := engine.New(led, transport, pol, engineOpts...)

	summary, runErr := eng.Run(ctx, in.results, in.index)
	if err := printSummary(out, summary); err != nil {
		return WrapExitError(ExitFailure, "failed to write summary", err)
	}

	var ledgerErr *engine.LedgerError
	switch {
	case errors.As(runErr, &ledgerErr):
		return WrapExitError(ExitCommandError, "ledger error", runErr)
	case errors.Is(runErr, context.Canceled):
		return WrapExitError(ExitFailure, "run interrupted", runErr)
	case runErr != nil:
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	if n := summary.Count(engine.Failed); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d notification(s) failed, run again to retry", n))
	}
	return nil
}
