package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the tax rules snapshots available",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the current snapshot for each jurisdiction and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "JURISDICTION\tYEAR\tVERSION\tLABEL")
			for _, key := range a.book.Keys() {
				r, err := a.book.Lookup(key.Jurisdiction, key.Year)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Jurisdiction, r.Year, r.Version(), r.Label)
			}
			return tw.Flush()
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show <jurisdiction> <year>",
		Short: "Print one snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := domain.ParseJurisdiction(args[0])
			if err != nil {
				return err
			}
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return domain.FieldError("year", "not a number: %q", args[1])
			}
			r, err := a.book.Lookup(j, year)
			if err != nil {
				return err
			}
			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(r)
			case "json":
				data, err = json.MarshalIndent(r, "", "  ")
				data = append(data, '\n')
			default:
				return domain.FieldError("format", "must be yaml or json")
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "yaml", "yaml or json")

	cmd.AddCommand(list, show)
	return cmd
}
