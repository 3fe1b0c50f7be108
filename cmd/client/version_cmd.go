package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tyljohnny/davsync/internal/version"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and runtime version details",
		RunE:  printVersion,
	}
}

func printVersion(cmd *cobra.Command, args []string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Detailed())
	return err
}
