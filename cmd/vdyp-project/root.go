package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "vdyp-project",
		Short: "Forest stand growth projection",
		Long: `vdyp-project runs polygon descriptions through the growth stages
(Initial, Adjust, Forward, Back) and prints the yield of every layer.

Settings come from vdyp.yaml (or --config), a .env file and VDYP_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./vdyp.yaml when present)")
	cmd.AddCommand(
		projectCmd(&configPath),
		siteCmd(),
		curvesCmd(),
	)
	return cmd
}
