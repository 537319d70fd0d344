package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/daopilot/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [images...]",
		Short: "Build PSF models for the configured images",
		Long: "Build PSF models for the named images, or for every image in the\n" +
			"configuration when no names are given.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			manifestPath, _ := cmd.Flags().GetString("manifest")
			return c.app.Run(cmd.Context(), args, app.RunOptions{
				Workers:      workers,
				ManifestPath: manifestPath,
			})
		},
	}
	cmd.Flags().IntP("workers", "w", 1, "Number of images to process concurrently")
	cmd.Flags().String("manifest", "", "Path for the run manifest (default "+app.DefaultManifestName+")")
	return cmd
}
