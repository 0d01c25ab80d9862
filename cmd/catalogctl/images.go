package main

import (
	"context"

	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "Report how many products have an image file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container, _ *zap.Logger) error {
				report, err := c.ImageCoverage.Execute(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}
