package main

import (
	"context"

	admin "github.com/mohammadpnp/catalog-import/internal/application/catalogadmin"
	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFeaturedCmd() *cobra.Command {
	var in admin.FeatureProductsInput

	cmd := &cobra.Command{
		Use:   "featured",
		Short: "Mark random in-stock products as featured",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container, _ *zap.Logger) error {
				out, err := c.FeatureProducts.Execute(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().IntVar(&in.Count, "count", admin.DefaultFeaturedCount, "number of products to feature")
	cmd.Flags().BoolVar(&in.ClearExisting, "clear-existing", false, "unfeature current products first")
	cmd.Flags().StringVar(&in.BrandFilter, "by-brand", "", "only products whose brand name contains this text")

	return cmd
}
