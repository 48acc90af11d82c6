package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cueline/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cueline",
	Short: "cueline is a tempo and cue engine for live theatre",
	Long: `cueline plays a show's tempo map and cue list sample-accurately: click track, LTC,
playback clips and MIDI clock, controlled from the terminal, HTTP or an MCP client.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default cueline.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"http":       "http.addr",
	"driver":     "audio.driver",
	"block":      "block_size",
	"media":      "media_dir",
	"midi":       "midi.port",
	"redis":      "redis.addr",
	"metrics":    "metrics.enabled",
}

// serveOptions collects the shared options from cmd's flags. Only flags the user set
// override the config file.
func serveOptions(cmd *cobra.Command, args []string) cli.ServeOptions {
	opts := cli.ServeOptions{Overrides: map[string]any{}}
	opts.ConfigPath, _ = cmd.Flags().GetString("config")
	if len(args) > 0 {
		opts.ShowPath = args[0]
	}
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f != nil && f.Changed {
			opts.Overrides[key] = f.Value.String()
		}
	}
	return opts
}
