package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
)

func (c *CLI) newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check recorded run artifacts against the manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifestPath, _ := cmd.Flags().GetString("manifest")
			stale, err := c.app.Verify(manifestPath)
			if err != nil {
				return err
			}
			for _, path := range stale {
				fmt.Printf("stale: %s\n", path)
			}
			if len(stale) > 0 {
				return zerr.With(zerr.New("recorded artifacts have changed"), "count", len(stale))
			}
			return nil
		},
	}
	cmd.Flags().String("manifest", "", "Path of the run manifest to verify")
	return cmd
}
