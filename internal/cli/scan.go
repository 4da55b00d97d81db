package cli

import (
	"github.com/spf13/cobra"

	"dustsweep/internal/app"
)

var scanOpts app.ChainOptions

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a wallet and report reclaimable dust",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), scanOpts)
	},
}

func init() {
	chainFlags(scanCmd, &scanOpts)
	scanCmd.Flags().BoolVar(&scanOpts.Unsafe, "unsafe", false, "Preview the scan without the new-account protection window")
}
