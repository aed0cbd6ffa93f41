// Command vsinkplay plays a generated test pattern through a vsink window.
//
// Settings come from flags, VSINK_* environment variables and an optional
// YAML or TOML file, in that order of precedence.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vsinkplay",
	Short: "Play a test pattern through a video sink window",
	Long: `vsinkplay renders colour bars with a bouncing box into a vsink window.

It opens a private top-level window, or embeds into an existing X11 window
with --parent. The headless display runs without a window system.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vsinkplay %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
