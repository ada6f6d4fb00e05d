package main

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExampleCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "example [file]",
		Short: "Write an example scenario document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := config.NewInputParser()
			doc := parser.CreateExampleConfiguration()
			if len(args) == 1 {
				if err := parser.Save(args[0], doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
				return nil
			}
			data, err := yaml.Marshal(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
