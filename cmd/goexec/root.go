package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "goexec",
		Short:         "Run child processes and wait on them from an evented actor",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newWaitCmd())
	return cmd
}
