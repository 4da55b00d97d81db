package cli

import (
	"github.com/spf13/cobra"

	"dustsweep/internal/app"
)

var watchOpts app.ChainOptions

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically scan and sweep until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), watchOpts)
	},
}

func init() {
	chainFlags(watchCmd, &watchOpts)
	watchCmd.Flags().BoolVar(&watchOpts.Unsafe, "unsafe", false, "Also sweep accounts inside the new-account protection window")
}
