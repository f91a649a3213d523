package main

import (
	"fmt"

	"github.com/spf13/cobra"

	fabriclensversion "github.com/fabriclens/fabriclens/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the CLI version",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newOutputFormatter(cmd)
			v := fabriclensversion.FormatVersion(fabriclensversion.String())
			if formatter.jsonMode {
				return formatter.Print(map[string]string{"version": v})
			}
			fmt.Printf("fabriclens %s\n", v)
			return nil
		},
	}
}
