package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [images...]",
		Short: "Remove intermediate run artifacts",
		Long: "Remove the intermediate files a run leaves next to the named images,\n" +
			"or next to every configured image when no names are given. The input\n" +
			"frames, the definitive models, and the catalogs are kept.",
		Args: cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.Clean(args)
		},
	}
}
