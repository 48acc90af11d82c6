package main

import (
	"github.com/aretw0/cueline/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [show]",
	Short: "Run a show",
	Long: `Loads a show (a .yaml/.json file or a directory of markdown cue sheets) and runs it
on the sound card with the HTTP API. On a terminal the monitor TUI takes the keyboard;
with --input, commands are read from stdin instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := serveOptions(cmd, args)
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Input, _ = cmd.Flags().GetString("input")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.RunID, _ = cmd.Flags().GetString("run")
		opts.Resume, _ = cmd.Flags().GetBool("resume")
		opts.NoBanner, _ = cmd.Flags().GetBool("no-banner")

		switch opts.Input {
		case "", "json", "text":
		default:
			return errInput(opts.Input)
		}
		if opts.Resume && opts.RunID == "" {
			return errResume
		}
		return cli.RunServe(opts)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addEngineFlags(serveCmd)
	serveCmd.Flags().String("http", "", "HTTP API address (empty string disables it)")
	serveCmd.Flags().Bool("headless", false, "Never start the monitor TUI")
	serveCmd.Flags().String("input", "", "Read commands from stdin: json or text")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the show when its files change")
	serveCmd.Flags().String("run", "", "Run id used to record status (default: a new uuid)")
	serveCmd.Flags().Bool("resume", false, "Select the cue the run stopped at")
	serveCmd.Flags().Bool("no-banner", false, "Do not print the banner")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
}

// addEngineFlags registers the flags shared by commands that run the engine.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", "", "Audio driver: ebiten or null")
	cmd.Flags().Int("block", 0, "Largest tick in samples")
	cmd.Flags().String("media", "", "Playback clip directory")
	cmd.Flags().String("midi", "", "MIDI clock output port (number or name)")
	cmd.Flags().String("redis", "", "Redis address for run snapshots and status pub/sub")
}
