// Package cli implements the appcache command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/internal/log"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	dir       string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "appcache",
	Short: "Script bundler and offline cache manifest generator",
	Long: `Appcache prepares a web application's client-side assets for deployment.

It concatenates the scripts of each configured base directory into a
combined bundle, minifies it through a Closure Compiler service, and keeps
the offline cache manifest's generated section in sync with the files on
disk.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "appcache %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json, pretty)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.dir, "dir", "C", "",
		"Workspace directory (default: current directory)")

	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger. Config file defaults are
// applied later by loadWorkspace for flags the user did not set.
func initLogging() {
	log.Init(globalFlags.verbosity, globalFlags.logFormat)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
