package main

import (
	"fmt"
	"io"

	"github.com/rpgo/wealth-simulator/internal/calculation"
	"github.com/rpgo/wealth-simulator/internal/config"
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/orchestrator"
	"github.com/rpgo/wealth-simulator/internal/output"
	"github.com/spf13/cobra"
)

func newMonteCarloCmd(a *app) *cobra.Command {
	var (
		flags      reportFlags
		iterations int
		seed       int64
		horizon    int
		workers    int
		quiet      bool
		history    string
	)
	cmd := &cobra.Command{
		Use:     "montecarlo <scenarios.yaml>",
		Aliases: []string{"mc", "simulate"},
		Short:   "Simulate scenarios under sampled returns",
		Long: `Simulate each scenario many times with returns drawn per asset class.

A deterministic estimate is printed to stderr straight away while the
simulation runs. Interrupting the run reports the iterations finished so far.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.NewInputParser().LoadFromFile(args[0])
			if err != nil {
				return err
			}
			inputs, err := selectScenarios(doc, flags.scenarios)
			if err != nil {
				return err
			}

			cfg := domain.MonteCarloConfig{}
			if doc.MonteCarlo != nil {
				cfg = *doc.MonteCarlo
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Iterations = iterations
			}
			if cfg.Iterations == 0 {
				cfg.Iterations = a.settings.MCIterations
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = &seed
			}
			if cmd.Flags().Changed("horizon") {
				cfg.HorizonYears = horizon
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if history != "" {
				h, err := calculation.LoadReturnHistory(history)
				if err != nil {
					return err
				}
				for _, w := range h.Warnings() {
					a.logger.Warnf("return history: %s", w)
				}
				models := make(map[domain.AssetClass]domain.ReturnModel, len(cfg.AssetClasses))
				for c, m := range cfg.AssetClasses {
					models[c] = m
				}
				for c, m := range h.Models() {
					models[c] = m
				}
				cfg.AssetClasses = models
			}

			ctx := cmd.Context()
			errOut := cmd.ErrOrStderr()
			report := &output.Report{Assumptions: output.GenerateAssumptions(inputs)}
			if history != "" {
				report.Assumptions = append(report.Assumptions, "Return means and volatilities taken from "+history)
			}
			var interrupted error
			for _, in := range inputs {
				run := cfg
				if !quiet {
					run.Progress = progressPrinter(errOut, in.ID)
				}
				p, err := a.orch.ComputeProgressive(ctx, orchestrator.Request{Kind: orchestrator.KindMonteCarlo, Input: in, MonteCarlo: &run})
				if err != nil {
					return fmt.Errorf("scenario %s: %w", in.ID, err)
				}
				if p.Estimate != nil && !quiet {
					fmt.Fprintf(errOut, "%s: deterministic estimate %s final net worth\n", in.ID, output.FormatCurrency(p.Estimate.Summary.FinalNetWorth))
				}
				out := <-p.Final
				if out.Result != nil && out.Result.MonteCarlo != nil {
					report.MonteCarlo = append(report.MonteCarlo, out.Result.MonteCarlo)
				}
				if out.Err != nil {
					if orchestrator.IsCancelled(out.Err) {
						interrupted = out.Err
						break
					}
					return fmt.Errorf("scenario %s: %w", in.ID, out.Err)
				}
				res, err := a.orch.ComputeScenario(ctx, in)
				if err != nil {
					return fmt.Errorf("scenario %s: %w", in.ID, err)
				}
				report.Scenarios = append(report.Scenarios, res)
			}
			if len(report.MonteCarlo) > 0 || len(report.Scenarios) > 0 {
				if err := render(cmd, report, flags.format, flags.outputDir); err != nil {
					return err
				}
			}
			return interrupted
		},
	}
	flags.register(cmd, "console")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "iterations per scenario (default from the document or $WEALTHSIM_MC_ITERATIONS)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for reproducible runs")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "override the projection horizon in years")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (default $WEALTHSIM_WORKERS or all CPUs)")
	cmd.Flags().StringVar(&history, "history", "", "CSV of annual returns per asset class; replaces the return models it covers")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

// progressPrinter reports whole-percent progress on one line.
func progressPrinter(w io.Writer, id string) domain.ProgressFunc {
	last := -1
	return func(done, total int) {
		if total == 0 {
			return
		}
		pct := done * 100 / total
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%s: %3d%% (%d/%d)", id, pct, done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
