package main

import (
	"fmt"

	"github.com/rgehrsitz/paytax/internal/config"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "validate policy|schedule|input FILE",
		Short:     "Validate a tax policy, bracket schedule or calculation input file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"policy", "schedule", "input"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, file := args[0], args[1]
			parser := config.NewInputParser()

			var err error
			switch kind {
			case "policy":
				_, err = parser.LoadPolicy(file)
			case "schedule":
				_, err = parser.LoadSchedule(file)
			case "input":
				_, err = parser.LoadCalculationInput(file)
			default:
				return fmt.Errorf("unknown file kind %q (expected policy, schedule or input)", kind)
			}
			if err != nil {
				return fmt.Errorf("%s is invalid: %w", file, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid %s file\n", file, kind)
			return nil
		},
	}
}
