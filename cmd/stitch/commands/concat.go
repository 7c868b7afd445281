package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stitch/internal/app"
)

func (c *CLI) newConcatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concat [sources...]",
		Short: "Concatenate sources into one artifact and print its URL",
		Long: "Concatenate the given sources, relative to the output root, into the destination.\n" +
			"The URL is printed before the build finishes; the command exits non-zero if the build fails.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, _ := cmd.Flags().GetString("dest")
			sourcemap, _ := cmd.Flags().GetBool("sourcemap")
			share, _ := cmd.Flags().GetString("share")
			layout, _ := cmd.Flags().GetString("layout")
			doc, _ := cmd.Flags().GetString("doc")

			return c.app.Concat(cmd.Context(), app.ConcatOptions{
				Sources:     args,
				Destination: dest,
				Sourcemap:   sourcemap,
				Share:       share,
				Layout:      layout,
				Document:    doc,
			})
		},
	}
	cmd.Flags().StringP("dest", "d", "", "Destination file, or directory when its extension differs from the sources'")
	cmd.Flags().BoolP("sourcemap", "m", false, "Write a source map next to the destination")
	cmd.Flags().StringP("share", "s", "", "Output namespace the sources live in")
	cmd.Flags().StringP("layout", "l", "", "Primary layout of the document, names directory destinations")
	cmd.Flags().String("doc", "", "Path of the issuing document, used to label diagnostics")
	return cmd
}
