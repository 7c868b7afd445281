package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the build cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recorded destinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.ListCache(cmd.Context())
		},
	})

	return cmd
}
