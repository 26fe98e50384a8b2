package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vdypcore/internal/siteindex"
)

func curvesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "curves",
		Short: "List the site curves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-5s %-8s %-6s %s\n", "index", "name", "genus", "form")
			for _, c := range siteindex.Curves() {
				fmt.Fprintf(out, "%-5d %-8s %-6s %s\n", c.ID, c.Name, c.Genus, c.Form)
			}
			return nil
		},
	}
}
