package catalogadmin

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

const DefaultFeaturedCount = 15

type featuredStore interface {
	ClearFeatured(ctx context.Context) (int64, error)
	FeatureRandomProducts(ctx context.Context, count int, brandFilter string) ([]catalog.Product, error)
}

type FeatureProductsInput struct {
	Count         int
	ClearExisting bool
	// BrandFilter narrows the pick to brands whose name contains it.
	BrandFilter string
}

type FeatureProductsOutput struct {
	Cleared    int64             `json:"cleared"`
	Featured   int               `json:"featured"`
	Brands     int               `json:"brands"`
	Categories int               `json:"categories"`
	Products   []catalog.Product `json:"-"`
}

type FeatureProducts interface {
	Execute(ctx context.Context, in FeatureProductsInput) (FeatureProductsOutput, error)
}

type featureProducts struct {
	store  featuredStore
	logger *zap.Logger
}

func NewFeatureProducts(store featuredStore, logger *zap.Logger) FeatureProducts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &featureProducts{store: store, logger: logger}
}

func (uc *featureProducts) Execute(ctx context.Context, in FeatureProductsInput) (FeatureProductsOutput, error) {
	if in.Count == 0 {
		in.Count = DefaultFeaturedCount
	}
	if in.Count < 0 {
		return FeatureProductsOutput{}, ErrInvalidCount
	}

	var out FeatureProductsOutput
	if in.ClearExisting {
		cleared, err := uc.store.ClearFeatured(ctx)
		if err != nil {
			return FeatureProductsOutput{}, fmt.Errorf("clear featured: %w", err)
		}
		out.Cleared = cleared
	}

	products, err := uc.store.FeatureRandomProducts(ctx, in.Count, strings.TrimSpace(in.BrandFilter))
	if err != nil {
		return out, fmt.Errorf("feature products: %w", err)
	}

	brands := make(map[int64]struct{})
	categories := make(map[int64]struct{})
	for _, p := range products {
		brands[p.BrandID] = struct{}{}
		categories[p.CategoryID] = struct{}{}
	}
	out.Featured = len(products)
	out.Brands = len(brands)
	out.Categories = len(categories)
	out.Products = products

	if out.Featured < in.Count {
		uc.logger.Warn("fewer in-stock products than requested",
			zap.Int("requested", in.Count),
			zap.Int("featured", out.Featured),
		)
	}
	uc.logger.Info("featured products set",
		zap.Int64("cleared", out.Cleared),
		zap.Int("featured", out.Featured),
		zap.String("brand_filter", in.BrandFilter),
	)
	return out, nil
}
