package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ninthcircle/diceroller/internal/apperr"
)

var (
	configFile string
	version    = "dev"
	commit     = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "diceroller",
	Short: "Dice roller for play-by-forum campaigns",
	Long: `diceroller logs dice rolls (N dice of X faces plus a modifier) for
play-by-forum campaigns, shows a sortable roll history to logged in users
and serves an embeddable widget with the latest rolls.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diceroller version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/diceroller/diceroller.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		versionCmd,
		serveCmd,
		installCmd,
		uninstallCmd,
		statusCmd,
		configCmd,
		userCmd,
		campaignCmd,
		optionCmd,
		rollCmd,
		sessionsCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if apperr.IsFatal(err) {
			slog.Error("fatal error", "code", apperr.CodeOf(err), "error", err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
