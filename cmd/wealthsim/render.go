package main

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/output"
	"github.com/spf13/cobra"
)

// render writes report to stdout, or to a file in dir when dir is set.
func render(cmd *cobra.Command, report *output.Report, format, dir string) error {
	if dir != "" {
		path, err := output.GenerateReport(report, format, dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	f, err := output.FormatterFor(format)
	if err != nil {
		return err
	}
	data, err := f.Format(report)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
