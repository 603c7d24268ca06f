package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "invdao",
	Short: "Investment DAO dev chain",
	Long: `invdao runs an investment DAO on an embedded single-process dev chain: a
governance token ledger plus a treasury governor. Holders transfer and
delegate tokens, propose treasury payouts, and vote with their balances.
Every chain event is projected into PostgreSQL and served over an HTTP API.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
