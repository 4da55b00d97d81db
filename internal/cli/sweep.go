package cli

import (
	"github.com/spf13/cobra"

	"dustsweep/internal/app"
)

var sweepOpts app.ChainOptions

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Scan a wallet and reclaim all sweepable dust",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Sweep(cmd.Context(), sweepOpts)
	},
}

func init() {
	chainFlags(sweepCmd, &sweepOpts)
	sweepCmd.Flags().BoolVar(&sweepOpts.Unsafe, "unsafe", false, "Also sweep accounts inside the new-account protection window")
}
