package main

import (
	"context"
	"fmt"

	admin "github.com/mohammadpnp/catalog-import/internal/application/catalogadmin"
	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newClearCmd() *cobra.Command {
	var in admin.ClearCatalogInput

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete catalog products, and brands and categories unless kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container, _ *zap.Logger) error {
				result, err := c.ClearCatalog.Execute(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d products, %d brands, %d categories\n",
					result.Products, result.Brands, result.Categories)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&in.KeepCategories, "keep-categories", false, "keep categories")
	cmd.Flags().BoolVar(&in.KeepBrands, "keep-brands", false, "keep brands")
	cmd.Flags().BoolVar(&in.Confirm, "confirm", false, "required to actually delete")

	return cmd
}
