package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dustsweep/internal/app"
	"dustsweep/internal/config"
	"dustsweep/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "dustsweep",
	Short: "Scan wallets for dust holdings and reclaim the locked value",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}

// chainFlags registers the chain selection flags shared by scan, sweep,
// and watch.
func chainFlags(cmd *cobra.Command, opts *app.ChainOptions) {
	cmd.Flags().StringVar(&opts.Chain, "chain", "solana", "Chain to operate on (solana or bnb)")
	cmd.Flags().StringVar(&opts.Network, "network", "", "Network override (defaults to config)")
	cmd.Flags().StringVar(&opts.Wallet, "wallet", "", "Wallet address override (defaults to config)")
}
