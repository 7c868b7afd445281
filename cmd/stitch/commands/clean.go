package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stitch/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the build cache record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			artifacts, _ := cmd.Flags().GetBool("artifacts")
			return c.app.Clean(cmd.Context(), app.CleanOptions{Artifacts: artifacts})
		},
	}

	cmd.Flags().BoolP("artifacts", "a", false, "Also remove every recorded artifact and its source map")

	return cmd
}
