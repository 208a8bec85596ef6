package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version    string
	configFile string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "pinpoint",
	Short: "PinPoint map marker server",
	Long: `pinpoint serves per-workspace map marker lists. Signed-out workspaces keep
their markers in memory; signed-in users get their markers from MongoDB.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json, toml or .env style)")
}
