package main

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/config"
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/output"
	"github.com/spf13/cobra"
)

type reportFlags struct {
	format    string
	outputDir string
	scenarios []string
}

func (f *reportFlags) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVarP(&f.format, "format", "f", defaultFormat, "output format: "+fmt.Sprint(output.AvailableFormatterNames()))
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "write the report to a timestamped file in this directory")
	cmd.Flags().StringSliceVarP(&f.scenarios, "scenario", "s", nil, "scenario IDs to run (default all)")
}

func newProjectCmd(a *app) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "project <scenarios.yaml>",
		Short: "Run deterministic year-by-year projections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.NewInputParser().LoadFromFile(args[0])
			if err != nil {
				return err
			}
			inputs, err := selectScenarios(doc, flags.scenarios)
			if err != nil {
				return err
			}
			report := &output.Report{Assumptions: output.GenerateAssumptions(inputs)}
			for _, in := range inputs {
				res, err := a.orch.ComputeScenario(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("scenario %s: %w", in.ID, err)
				}
				report.Scenarios = append(report.Scenarios, res)
			}
			return render(cmd, report, flags.format, flags.outputDir)
		},
	}
	flags.register(cmd, "console")
	return cmd
}

// selectScenarios returns the requested scenarios in document order, or all
// of them when ids is empty.
func selectScenarios(doc *config.Document, ids []string) ([]*domain.ScenarioInput, error) {
	if len(ids) == 0 {
		return doc.Inputs(), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := doc.Scenario(id); !ok {
			return nil, domain.FieldError("scenario", "no scenario with id %q", id)
		}
		want[id] = true
	}
	var out []*domain.ScenarioInput
	for _, in := range doc.Inputs() {
		if want[in.ID] {
			out = append(out, in)
		}
	}
	return out, nil
}
