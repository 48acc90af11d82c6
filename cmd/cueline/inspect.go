package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cueline/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var validateCmd = &cobra.Command{
	Use:   "validate [show]",
	Short: "Check the show for consistency",
	Long:  `Compiles the show and crawls the cue graph from the start cue, reporting broken links, bad values and unreachable cues.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(cmd.Context(), firstArg(args), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [show]",
	Short: "Export the cue graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the cue list and its exit policies.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		return cli.Graph(cmd.Context(), firstArg(args), runID, cmd.OutOrStdout())
	},
}

var cuesCmd = &cobra.Command{
	Use:   "cues [show]",
	Short: "Print the cue sheet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			plain = true
		}
		return cli.Cues(cmd.Context(), firstArg(args), plain, cmd.OutOrStdout())
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow the status another cueline broadcasts through redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Monitor(serveOptions(cmd, nil), cmd.OutOrStdout())
	},
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func init() {
	rootCmd.AddCommand(validateCmd, graphCmd, cuesCmd, monitorCmd)
	graphCmd.Flags().String("run", "", "Highlight the cue a recorded run stopped at")
	cuesCmd.Flags().Bool("plain", false, "Render without colors")
	monitorCmd.Flags().String("redis", "", "Redis address")
}
