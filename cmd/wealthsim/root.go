package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rpgo/wealth-simulator/internal/calculation"
	"github.com/rpgo/wealth-simulator/internal/config"
	"github.com/rpgo/wealth-simulator/internal/orchestrator"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/rpgo/wealth-simulator/internal/telemetry"
	"github.com/spf13/cobra"
)

// app holds what every command shares once flags and environment are read.
type app struct {
	verbose  bool
	rulesDir string

	settings config.Settings
	logger   calculation.Logger
	book     *tax.RulesBook
	engine   *calculation.CalculationEngine
	orch     *orchestrator.Orchestrator
	cleanup  []func(context.Context) error
}

// execute runs one command line against a. Whatever setup acquired is
// released afterwards, including when setup or the command fails; cobra
// skips post-run hooks on error.
func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) (err error) {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() {
		if cerr := a.close(ctx); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "wealthsim",
		Short:         "Project and simulate personal wealth scenarios across AU, US and UK tax rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().StringVar(&a.rulesDir, "rules-dir", "", "directory of rules snapshots to publish over the built-in rules (default $WEALTHSIM_RULES_DIR)")

	root.AddCommand(
		newProjectCmd(a),
		newMonteCarloCmd(a),
		newRulesCmd(a),
		newExampleCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = calculation.NewStdLogger(cmd.ErrOrStderr(), a.verbose)

	a.book = tax.DefaultRulesBook()
	dir := a.rulesDir
	if dir == "" {
		dir = settings.RulesDir
	}
	if dir != "" {
		n, err := config.PublishDir(a.book, dir)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		a.logger.Debugf("published %d rules snapshots from %s", n, dir)
	}

	shutdown, err := telemetry.Setup(ctx, "wealthsim", settings.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	a.cleanup = append(a.cleanup, shutdown)

	var store orchestrator.ResultStore
	if settings.RedisAddr != "" {
		rs, err := orchestrator.DialRedis(ctx, settings.RedisAddr, settings.RedisTTL)
		if err != nil {
			return err
		}
		a.cleanup = append(a.cleanup, func(context.Context) error { return rs.Close() })
		store = rs
	}

	a.engine = calculation.NewCalculationEngine(a.book)
	a.engine.SetLogger(a.logger)
	a.engine.Workers = settings.Workers
	a.orch = orchestrator.New(a.book, a.engine, orchestrator.Options{
		MaxBytes: settings.CacheMaxBytes,
		Store:    store,
		Logger:   a.logger,
	})
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.orch != nil {
		a.logger.Debugf("cache: %s", a.orch.Stats())
	}
	var first error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](context.WithoutCancel(ctx)); err != nil && first == nil {
			first = err
		}
	}
	a.cleanup = nil
	return first
}
