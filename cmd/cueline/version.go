package main

import (
	"fmt"

	"github.com/aretw0/cueline"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cueline",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cueline version %s\n", cueline.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
